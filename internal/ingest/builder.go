// Package ingest はプレイリストに追加するアイテムの組み立てと、
// 外部のRSS/Atomフィードからのお知らせ取り込みを提供する。
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/stagecast/internal/model"
)

// DefaultDividerColor は色指定のない区切りに使う色。
const DefaultDividerColor = "#6366f1"

// Sanitizer はスライド本文のサニタイズを抽象化するインターフェース。
// security.ContentSanitizerServiceが満たす。
type Sanitizer interface {
	Sanitize(raw string) string
}

// SlideRequest は明示的に指定されたスライド。
type SlideRequest struct {
	Kind          model.SlideKind `json:"kind,omitempty"`
	Content       string          `json:"content"`
	MediaRef      string          `json:"mediaRef,omitempty"`
	Label         string          `json:"label,omitempty"`
	OperatorNotes string          `json:"operatorNotes,omitempty"`
}

// ItemRequest はアイテム作成の入力。
// Slidesが空の場合はTextを空行で区切ってテキストスライドにする。
type ItemRequest struct {
	Title        string         `json:"title"`
	Kind         model.ItemKind `json:"kind"`
	Text         string         `json:"text,omitempty"`
	Slides       []SlideRequest `json:"slides,omitempty"`
	Theme        *model.Theme   `json:"theme,omitempty"`
	OriginQuery  string         `json:"originQuery,omitempty"`
	DividerColor string         `json:"dividerColor,omitempty"`
	DividerIcon  string         `json:"dividerIcon,omitempty"`
}

// Builder はリクエストから検証済みのPresentationItemを組み立てる。
type Builder struct {
	sanitizer Sanitizer
	newID     func() string
}

// NewBuilder はBuilderを生成する。sanitizerがnilの場合は本文をそのまま使う。
func NewBuilder(sanitizer Sanitizer) *Builder {
	return &Builder{
		sanitizer: sanitizer,
		newID:     uuid.NewString,
	}
}

// stanzaSeparator は空白だけの行を含む空行。
var stanzaSeparator = regexp.MustCompile(`\n[ \t\x{3000}]*\n`)

// SplitStanzas はテキストを空行で区切ってスライド単位に分割する。
// 前後の空白を除き、空のブロックは捨てる。
func SplitStanzas(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	blocks := stanzaSeparator.Split(text, -1)

	stanzas := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := strings.TrimSpace(b); s != "" {
			stanzas = append(stanzas, s)
		}
	}
	return stanzas
}

// NewItem はリクエストを検証してアイテムを組み立てる。
// IDはすべて新しく割り当て、テーマは値としてコピーする（未指定なら既定テーマ）。
func (b *Builder) NewItem(req ItemRequest) (model.PresentationItem, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.PresentationItem{}, model.NewInvalidRequestError("タイトルは必須です")
	}

	kind := req.Kind
	if kind == "" {
		kind = model.ItemKindCustom
	}
	if !kind.Valid() {
		return model.PresentationItem{}, model.NewInvalidRequestError(fmt.Sprintf("不明なアイテム種別です: %s", kind))
	}

	theme := model.DefaultTheme()
	if req.Theme != nil {
		theme = *req.Theme
	}

	item := model.PresentationItem{
		ID:          b.newID(),
		Title:       title,
		Kind:        kind,
		Slides:      []model.Slide{},
		Theme:       theme,
		OriginQuery: strings.TrimSpace(req.OriginQuery),
	}

	if kind == model.ItemKindDivider {
		item.DividerColor = req.DividerColor
		if item.DividerColor == "" {
			item.DividerColor = DefaultDividerColor
		}
		item.DividerIcon = req.DividerIcon
		return item, nil
	}

	reqs := req.Slides
	if len(reqs) == 0 {
		for _, stanza := range SplitStanzas(req.Text) {
			reqs = append(reqs, SlideRequest{Kind: model.SlideKindText, Content: stanza})
		}
	}
	if len(reqs) == 0 {
		return model.PresentationItem{}, model.NewInvalidRequestError("スライドが1枚もありません")
	}

	slides, err := b.BuildSlides(reqs)
	if err != nil {
		return model.PresentationItem{}, err
	}
	item.Slides = slides
	return item, nil
}

// BuildSlides はスライドの入力を検証し、IDを割り当ててサニタイズする。
func (b *Builder) BuildSlides(reqs []SlideRequest) ([]model.Slide, error) {
	slides := make([]model.Slide, 0, len(reqs))
	for i, r := range reqs {
		slide, err := b.NewSlide(r)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		slides = append(slides, slide)
	}
	return slides, nil
}

// NewSlide は1枚分のスライドを組み立てる。
// 画像と動画のスライドはMediaRefが必須。
func (b *Builder) NewSlide(r SlideRequest) (model.Slide, error) {
	kind := r.Kind
	if kind == "" {
		kind = model.SlideKindText
	}
	if !kind.Valid() {
		return model.Slide{}, model.NewInvalidRequestError(fmt.Sprintf("不明なスライド種別です: %s", kind))
	}

	mediaRef := strings.TrimSpace(r.MediaRef)
	if kind != model.SlideKindText && mediaRef == "" {
		return model.Slide{}, model.NewInvalidRequestError("画像・動画スライドにはmediaRefが必要です")
	}

	return model.Slide{
		ID:            b.newID(),
		Kind:          kind,
		Content:       b.Clean(r.Content),
		MediaRef:      mediaRef,
		Label:         b.Clean(r.Label),
		OperatorNotes: b.Clean(r.OperatorNotes),
	}, nil
}

// Clean はテキストをサニタイズする。サニタイザー未設定の場合は前後の空白だけを除く。
func (b *Builder) Clean(s string) string {
	if b.sanitizer == nil {
		return strings.TrimSpace(s)
	}
	return b.sanitizer.Sanitize(s)
}
