package surface

import (
	"encoding/json"
	"fmt"

	"github.com/hitoshi/stagecast/internal/model"
)

// ChannelName はコンソールとディスプレイが参加するバスのチャネル名。
const ChannelName = "stagecast_projector_sync"

// CommandToggleFullscreen はウィンドウハンドルへ直接送るフルスクリーン切替コマンド。
// バスではなく特定のウィンドウへ送る。
const CommandToggleFullscreen = "TOGGLE_FULLSCREEN"

// MessageType はバスメッセージの種別。
type MessageType string

const (
	// TypeSyncState はスナップショット全体の配信。
	TypeSyncState MessageType = "SYNC_STATE"
	// TypeRequestState は参加直後のディスプレイによるスナップショット要求。
	TypeRequestState MessageType = "REQUEST_STATE"
	// TypeMediaCommand は埋め込みメディアへの一方通行コマンド。
	TypeMediaCommand MessageType = "MEDIA_COMMAND"
	// TypeFocus はコンソールビューが入力フォーカスを取り戻したことの通知。
	TypeFocus MessageType = "FOCUS"
)

// Message はバス上を流れるJSONメッセージ。
type Message struct {
	Type  MessageType     `json:"type"`
	Data  *model.Snapshot `json:"data,omitempty"`
	Media json.RawMessage `json:"media,omitempty"`
}

// Encode はメッセージをJSONに変換する。
func Encode(m Message) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("メッセージのエンコードに失敗しました: %w", err)
	}
	return b, nil
}

// Decode はJSONからメッセージを復元する。typeが空の場合はエラーを返す。
func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("メッセージのデコードに失敗しました: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("メッセージ種別がありません")
	}
	return m, nil
}

// AllowedFrom はクライアントから受け付けるメッセージ種別かどうかを返す。
// スナップショットとメディアコマンドはコンソールだけが送れる。
func AllowedFrom(role Role, t MessageType) bool {
	switch t {
	case TypeRequestState:
		return true
	case TypeFocus:
		return role == RoleConsole
	default:
		return false
	}
}
