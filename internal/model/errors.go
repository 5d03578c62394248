// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, playlist, theme, surface, playback, remote, announcement, system
	Action   string // オペレーター向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeSlideNotFound        = "SLIDE_NOT_FOUND"
	ErrCodeDividerNotLive       = "DIVIDER_NOT_LIVE"
	ErrCodeNoActiveItem         = "NO_ACTIVE_ITEM"
	ErrCodeInvalidImportMode    = "INVALID_IMPORT_MODE"
	ErrCodePresetNotFound       = "PRESET_NOT_FOUND"
	ErrCodeSurfaceBlocked       = "SURFACE_BLOCKED"
	ErrCodeNoAudioTrack         = "NO_AUDIO_TRACK"
	ErrCodeUnknownRemoteCommand = "UNKNOWN_REMOTE_COMMAND"
	ErrCodeUnknownKey           = "UNKNOWN_KEY"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeSSRFBlocked          = "SSRF_BLOCKED"
	ErrCodeFetchFailed          = "FETCH_FAILED"
	ErrCodeParseFailed          = "PARSE_FAILED"
	ErrCodeFeedNotDetected      = "FEED_NOT_DETECTED"
	ErrCodeNotRefreshable       = "NOT_REFRESHABLE"
)

// NewInvalidRequestError はリクエスト内容の不備を表すエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定されたアイテムが見つかりません: %s", itemID),
		Category: "playlist",
		Action:   "プレイリストを再読み込みしてください。",
	}
}

// NewSlideNotFoundError はスライド未検出エラーを生成する。
func NewSlideNotFoundError(slideID string) *APIError {
	return &APIError{
		Code:     ErrCodeSlideNotFound,
		Message:  fmt.Sprintf("指定されたスライドが見つかりません: %s", slideID),
		Category: "playlist",
		Action:   "プレイリストを再読み込みしてください。",
	}
}

// NewDividerNotLiveError は区切りをライブにしようとした場合のエラーを生成する。
func NewDividerNotLiveError() *APIError {
	return &APIError{
		Code:     ErrCodeDividerNotLive,
		Message:  "区切りはライブにできません。",
		Category: "playlist",
		Action:   "スライドを持つアイテムを選択してください。",
	}
}

// NewNoActiveItemError は選択中のアイテムが必要な操作で未選択だった場合のエラーを生成する。
func NewNoActiveItemError() *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveItem,
		Message:  "アイテムが選択されていません。",
		Category: "playlist",
		Action:   "プレイリストからアイテムを選択してください。",
	}
}

// NewInvalidImportModeError はインポートモードが不正な場合のエラーを生成する。
func NewInvalidImportModeError(mode string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImportMode,
		Message:  fmt.Sprintf("無効なインポートモードです: %s", mode),
		Category: "validation",
		Action:   "モードには replace または merge を指定してください。",
	}
}

// NewPresetNotFoundError はテーマプリセット未検出エラーを生成する。
func NewPresetNotFoundError(name string) *APIError {
	return &APIError{
		Code:     ErrCodePresetNotFound,
		Message:  fmt.Sprintf("指定されたテーマプリセットが見つかりません: %s", name),
		Category: "theme",
		Action:   "プリセット一覧から名前を選択してください。",
	}
}

// NewSurfaceBlockedError はディスプレイウィンドウを作成できなかった場合のエラーを生成する。
// 自動では再試行しないため、オペレーターに手動での再操作を促す。
func NewSurfaceBlockedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSurfaceBlocked,
		Message:  fmt.Sprintf("プロジェクターウィンドウを開けませんでした: %s", reason),
		Category: "surface",
		Action:   "ブラウザの設定を確認し、もう一度プロジェクターを開いてください。",
	}
}

// NewNoAudioTrackError はBGMが読み込まれていない場合のエラーを生成する。
func NewNoAudioTrackError() *APIError {
	return &APIError{
		Code:     ErrCodeNoAudioTrack,
		Message:  "BGMが読み込まれていません。",
		Category: "playback",
		Action:   "先にBGMのトラックを指定してください。",
	}
}

// NewUnknownRemoteCommandError は未対応のリモートコマンドのエラーを生成する。
func NewUnknownRemoteCommandError(command string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownRemoteCommand,
		Message:  fmt.Sprintf("未対応のリモートコマンドです: %s", command),
		Category: "remote",
		Action:   "next、prev、blackout、clear、logo、go_live、stop のいずれかを指定してください。",
	}
}

// NewUnknownKeyError は割り当てのないキーのエラーを生成する。
func NewUnknownKeyError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownKey,
		Message:  fmt.Sprintf("割り当てのないキーです: %s", key),
		Category: "validation",
		Action:   "ショートカット一覧を確認してください。",
	}
}

// NewUnauthorizedError はリモートトークンが無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "remote",
		Action:   "リモコンをもう一度ペアリングしてください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("URLの取得に失敗しました: %s", reason),
		Category: "announcement",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewParseFailedError はパース失敗エラーを生成する。
func NewParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeParseFailed,
		Message:  "お知らせフィードの解析に失敗しました。",
		Category: "announcement",
		Action:   "有効なRSS/Atomフィードかどうか確認してください。",
	}
}

// NewFeedNotDetectedError はフィード未検出エラーを生成する。
func NewFeedNotDetectedError(url string) *APIError {
	return &APIError{
		Code:     ErrCodeFeedNotDetected,
		Message:  fmt.Sprintf("指定されたURLからRSS/Atomフィードを検出できませんでした: %s", url),
		Category: "announcement",
		Action:   "RSS/AtomフィードのURLを直接入力するか、フィードが公開されているページのURLを確認してください。",
	}
}

// NewNotRefreshableError は再取得元を持たないアイテムの更新エラーを生成する。
func NewNotRefreshableError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotRefreshable,
		Message:  fmt.Sprintf("このアイテムは自動更新できません: %s", itemID),
		Category: "announcement",
		Action:   "フィードから取り込んだアイテムのみ更新できます。",
	}
}
