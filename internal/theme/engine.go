// Package theme はステージテーマとライブテーマの分離、適用履歴によるアンドゥ、
// アイテムごとの編集前テーマの復元を提供する。
package theme

import (
	"time"

	"github.com/hitoshi/stagecast/internal/model"
)

// MaxHistory はアイテムごとに保持する適用履歴の上限。
const MaxHistory = 50

// Engine はアイテムIDごとの適用履歴と編集前テーマを保持する。
// 操作対象のスナップショットは呼び出し側が所有し、排他も呼び出し側が行う。
type Engine struct {
	history   map[string][]model.ThemeHistoryEntry // 新しい順
	originals map[string]model.Theme
	now       func() time.Time
}

// NewEngine はEngineを生成する。nowがnilの場合はtime.Nowを使う。
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		history:   make(map[string][]model.ThemeHistoryEntry),
		originals: make(map[string]model.Theme),
		now:       now,
	}
}

// Stage はステージテーマを置き換える。ライブテーマには触れない。
func (e *Engine) Stage(s *model.Snapshot, t model.Theme) {
	s.StagedTheme = t
}

// Apply はステージテーマを選択中アイテムのライブテーマにする。
// 選択中のアイテムがない場合はfalseを返す。
func (e *Engine) Apply(s *model.Snapshot) bool {
	return e.ApplyTheme(s, s.StagedTheme)
}

// ApplyTheme は指定テーマを選択中アイテムに適用する。
// 直前のライブテーマを履歴に積み、初回のみ編集前テーマを記録する。
func (e *Engine) ApplyTheme(s *model.Snapshot, t model.Theme) bool {
	item := s.ActiveItem()
	if item == nil {
		return false
	}

	if _, ok := e.originals[item.ID]; !ok {
		e.originals[item.ID] = item.Theme
	}
	e.push(item.ID, item.Theme)

	item.Theme = t
	s.StagedTheme = t
	return true
}

// Discard はステージテーマを選択中アイテムのライブテーマに戻す。履歴は変更しない。
func (e *Engine) Discard(s *model.Snapshot) bool {
	return e.ResetStaged(s)
}

// ResetStaged はステージテーマを選択中アイテムのライブテーマに合わせる。
// 選択アイテムを切り替えたときに呼ぶ。
func (e *Engine) ResetStaged(s *model.Snapshot) bool {
	item := s.ActiveItem()
	if item == nil {
		return false
	}
	s.StagedTheme = item.Theme
	return true
}

// Undo は最新の履歴を取り出し、ライブとステージの両方に直接適用する。
// Undo自体は履歴に積まない。対象がない場合はfalseを返す。
func (e *Engine) Undo(s *model.Snapshot) bool {
	item := s.ActiveItem()
	if item == nil {
		return false
	}
	stack := e.history[item.ID]
	if len(stack) == 0 {
		return false
	}

	entry := stack[0]
	e.history[item.ID] = stack[1:]

	item.Theme = entry.Theme
	s.StagedTheme = entry.Theme
	return true
}

// RestoreOriginal は記録済みの編集前テーマを通常の適用経路で再適用する。
// 現在のテーマは履歴に積まれるため、復元もアンドゥできる。
func (e *Engine) RestoreOriginal(s *model.Snapshot) bool {
	item := s.ActiveItem()
	if item == nil {
		return false
	}
	orig, ok := e.originals[item.ID]
	if !ok {
		return false
	}
	return e.ApplyTheme(s, orig)
}

// RestoreEntry は選択中アイテムの履歴のindex番目（新しい順）をライブとステージに適用する。
// 履歴は変更しない。アイテムがないかindexが範囲外の場合はfalseを返す。
func (e *Engine) RestoreEntry(s *model.Snapshot, index int) bool {
	item := s.ActiveItem()
	if item == nil {
		return false
	}
	stack := e.history[item.ID]
	if index < 0 || index >= len(stack) {
		return false
	}

	item.Theme = stack[index].Theme
	s.StagedTheme = stack[index].Theme
	return true
}

// Forget はアイテム削除時に履歴と編集前テーマを破棄する。
func (e *Engine) Forget(itemID string) {
	delete(e.history, itemID)
	delete(e.originals, itemID)
}

// History はアイテムの適用履歴のコピーを新しい順で返す。
func (e *Engine) History(itemID string) []model.ThemeHistoryEntry {
	stack := e.history[itemID]
	out := make([]model.ThemeHistoryEntry, len(stack))
	copy(out, stack)
	return out
}

// HasOriginal は編集前テーマが記録済みかどうかを返す。
func (e *Engine) HasOriginal(itemID string) bool {
	_, ok := e.originals[itemID]
	return ok
}

func (e *Engine) push(itemID string, t model.Theme) {
	stack := e.history[itemID]
	next := make([]model.ThemeHistoryEntry, 0, min(len(stack)+1, MaxHistory))
	next = append(next, model.ThemeHistoryEntry{Theme: t, Timestamp: e.now()})
	for _, entry := range stack {
		if len(next) >= MaxHistory {
			break
		}
		next = append(next, entry)
	}
	e.history[itemID] = next
}
