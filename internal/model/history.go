package model

import "time"

// ThemeHistoryEntry はテーマ適用前のライブテーマの記録。
type ThemeHistoryEntry struct {
	Theme     Theme     `json:"theme"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionEntry はオペレーター操作の履歴1件。
type ActionEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OperatorSettings はオペレーター単位で永続化されるプレイリストとカスタムテーマ。
type OperatorSettings struct {
	OperatorID   string             `json:"operatorId"`
	Playlist     []PresentationItem `json:"playlist"`
	CustomThemes []Theme            `json:"customThemes"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// SyncState はリモート永続化の状態を表す。
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateSyncing SyncState = "syncing"
	SyncStateError   SyncState = "error"
)

// SyncStatus はUIに表示する同期インジケーター。
type SyncStatus struct {
	State        SyncState `json:"state"`
	LastError    string    `json:"lastError,omitempty"`
	LastSyncedAt time.Time `json:"lastSyncedAt,omitempty"`
}
