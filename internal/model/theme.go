package model

// BackgroundAnimation は背景アニメーションの設定を表す。
type BackgroundAnimation struct {
	Type      string  `json:"type" yaml:"type"`
	Speed     float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	Color     string  `json:"color,omitempty" yaml:"color,omitempty"`
	Intensity float64 `json:"intensity,omitempty" yaml:"intensity,omitempty"`
}

// Theme はスライドの見た目を表す値オブジェクト。
// ポインタやスライスを持たないため、代入でコピーでき == で比較できる。
// アイテムに紐づくライブテーマと、コンソールが編集中のステージテーマの両方に使う。
type Theme struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Background  string  `json:"background" yaml:"background"`
	AspectRatio string  `json:"aspectRatio" yaml:"aspectRatio"`
	Padding     float64 `json:"padding" yaml:"padding"`

	// 文字
	TextColor           string  `json:"textColor" yaml:"textColor"`
	TextBackgroundColor string  `json:"textBackgroundColor" yaml:"textBackgroundColor"`
	TextOpacity         float64 `json:"textOpacity" yaml:"textOpacity"`
	FontFamily          string  `json:"fontFamily" yaml:"fontFamily"`
	FontSize            string  `json:"fontSize" yaml:"fontSize"`
	FontWeight          string  `json:"fontWeight" yaml:"fontWeight"`
	FontStyle           string  `json:"fontStyle" yaml:"fontStyle"`
	TextDecoration      string  `json:"textDecoration" yaml:"textDecoration"`
	TextTransform       string  `json:"textTransform" yaml:"textTransform"`
	Alignment           string  `json:"alignment" yaml:"alignment"`
	LineHeight          float64 `json:"lineHeight" yaml:"lineHeight"`
	LetterSpacing       float64 `json:"letterSpacing" yaml:"letterSpacing"`
	TextGradient        string  `json:"textGradient,omitempty" yaml:"textGradient,omitempty"`

	// 影と縁取り
	Shadow          bool    `json:"shadow" yaml:"shadow"`
	ShadowColor     string  `json:"shadowColor" yaml:"shadowColor"`
	ShadowBlur      float64 `json:"shadowBlur" yaml:"shadowBlur"`
	ShadowOffsetX   float64 `json:"shadowOffsetX" yaml:"shadowOffsetX"`
	ShadowOffsetY   float64 `json:"shadowOffsetY" yaml:"shadowOffsetY"`
	TextStrokeWidth float64 `json:"textStrokeWidth" yaml:"textStrokeWidth"`
	TextStrokeColor string  `json:"textStrokeColor" yaml:"textStrokeColor"`

	// アニメーション
	Animation   string              `json:"animation" yaml:"animation"`
	BgAnimation BackgroundAnimation `json:"bgAnimation" yaml:"bgAnimation"`

	// 背景画像とオーバーレイ
	BgImageBlur      float64 `json:"bgImageBlur" yaml:"bgImageBlur"`
	BgBrightness     float64 `json:"bgBrightness" yaml:"bgBrightness"`
	BgOverlayOpacity float64 `json:"bgOverlayOpacity" yaml:"bgOverlayOpacity"`
	BgOverlayColor   string  `json:"bgOverlayColor" yaml:"bgOverlayColor"`

	// 画像スライド
	ImageContentFit        string  `json:"imageContentFit" yaml:"imageContentFit"`
	ImageContentScale      float64 `json:"imageContentScale" yaml:"imageContentScale"`
	ImageContentOpacity    float64 `json:"imageContentOpacity" yaml:"imageContentOpacity"`
	ImageContentBrightness float64 `json:"imageContentBrightness" yaml:"imageContentBrightness"`
	ImageContentContrast   float64 `json:"imageContentContrast" yaml:"imageContentContrast"`
	ImageContentRadius     float64 `json:"imageContentRadius" yaml:"imageContentRadius"`
}

// DefaultTheme はテーマ未指定のアイテムに使う既定テーマを返す。
func DefaultTheme() Theme {
	return Theme{
		ID:                     "default",
		Name:                   "Default",
		Background:             "#000000",
		AspectRatio:            "16/9",
		Padding:                8,
		TextColor:              "#ffffff",
		TextBackgroundColor:    "transparent",
		TextOpacity:            1,
		FontFamily:             "Inter, sans-serif",
		FontSize:               "text-9xl",
		FontWeight:             "700",
		FontStyle:              "normal",
		TextDecoration:         "none",
		TextTransform:          "none",
		Alignment:              "center",
		LineHeight:             1.2,
		Shadow:                 true,
		ShadowColor:            "rgba(0,0,0,0.8)",
		ShadowBlur:             10,
		ShadowOffsetY:          2,
		TextStrokeColor:        "#000000",
		Animation:              "fade",
		BgAnimation:            BackgroundAnimation{Type: "none"},
		BgBrightness:           1,
		BgOverlayColor:         "#000000",
		ImageContentFit:        "contain",
		ImageContentScale:      1,
		ImageContentOpacity:    1,
		ImageContentBrightness: 1,
		ImageContentContrast:   1,
	}
}
