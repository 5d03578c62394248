package console

import (
	"sync"

	"github.com/hitoshi/stagecast/internal/model"
)

// DefaultActionLogSize はメモリに保持する操作履歴の件数。
const DefaultActionLogSize = 100

// ActionLog は新しい順に上限件数まで保持する操作履歴。
type ActionLog struct {
	mu      sync.Mutex
	entries []model.ActionEntry
	limit   int
}

// NewActionLog はActionLogを生成する。
func NewActionLog(limit int) *ActionLog {
	if limit <= 0 {
		limit = DefaultActionLogSize
	}
	return &ActionLog{limit: limit}
}

// Add は履歴の先頭に追加し、上限を超えた古いものを捨てる。
func (l *ActionLog) Add(entry model.ActionEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]model.ActionEntry{entry}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
}

// List は履歴のコピーを新しい順で返す。
func (l *ActionLog) List() []model.ActionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.ActionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
