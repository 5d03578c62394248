// Package console はオペレーターのコンソールが持つ権威ある状態を管理する。
// すべての変更は1つのミューテックスの下で行い、変更のたびにスナップショット全体を
// ディスプレイへ配信する。
package console

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/surface"
	"github.com/hitoshi/stagecast/internal/theme"
)

// 永続化が遅いときにローカル保存を打ち切る時間
const localSaveTimeout = 3 * time.Second

// Publisher はスナップショットの配信先。
type Publisher interface {
	PublishState(reason string, snap model.Snapshot)
}

// LocalStore は即時に書き込むローカルの設定保存先。
type LocalStore interface {
	SaveSettings(ctx context.Context, settings *model.OperatorSettings) error
}

// Persister は遅延実行されるリモート永続化への通知先。
type Persister interface {
	Notify()
	EnqueueAction(entry model.ActionEntry)
}

// Deps はSessionの依存。Publisher以外は省略できる。
type Deps struct {
	OperatorID string
	Publisher  Publisher
	LocalStore LocalStore
	Persister  Persister
	Presets    *theme.Catalogue
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Session はコンソールの状態の唯一の所有者。
type Session struct {
	operatorID string
	publisher  Publisher
	local      LocalStore
	persist    Persister
	presets    *theme.Catalogue
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu           sync.Mutex
	snap         model.Snapshot
	customThemes []model.Theme
	themes       *theme.Engine
	actions      *ActionLog
	status       model.SyncStatus
}

// New はSessionを生成する。
func New(deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		operatorID:   deps.OperatorID,
		publisher:    deps.Publisher,
		local:        deps.LocalStore,
		persist:      deps.Persister,
		presets:      deps.Presets,
		logger:       deps.Logger,
		now:          deps.Now,
		newID:        deps.NewID,
		snap:         model.NewSnapshot(),
		customThemes: []model.Theme{},
		themes:       theme.NewEngine(deps.Now),
		actions:      NewActionLog(DefaultActionLogSize),
		status:       model.SyncStatus{State: model.SyncStateIdle},
	}
}

// Snapshot は現在のスナップショットのコピーを返す。
func (s *Session) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Settings は永続化対象のプレイリストとカスタムテーマを返す。
func (s *Session) Settings() model.OperatorSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settingsLocked()
}

// Restore は起動時に永続化済みの設定でプレイリストを初期化する。
func (s *Session) Restore(settings *model.OperatorSettings) {
	if settings == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = model.NewSnapshot()
	s.snap.Playlist = clonePlaylist(settings.Playlist)
	s.customThemes = cloneThemes(settings.CustomThemes)
	s.publishLocked(surface.ReasonMutation)

	s.logger.Info("保存済みのプレイリストを復元しました",
		slog.String("operator_id", s.operatorID),
		slog.Int("items", len(s.snap.Playlist)),
		slog.Int("custom_themes", len(s.customThemes)),
	)
}

// Focus はコンソールが入力フォーカスを取り戻したときに現在の状態を再配信する。
func (s *Session) Focus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(surface.ReasonFocus)
}

// Republish はディスプレイを開き直した後の再配信。
func (s *Session) Republish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(surface.ReasonReopen)
}

// Actions は操作履歴を新しい順で返す。
func (s *Session) Actions() []model.ActionEntry {
	return s.actions.List()
}

// SyncStatus は永続化の同期インジケーターを返す。
func (s *Session) SyncStatus() model.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ReportSync は永続化の状態を更新する。
func (s *Session) ReportSync(state model.SyncState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	switch {
	case err != nil:
		s.status.LastError = err.Error()
	case state == model.SyncStateIdle:
		s.status.LastError = ""
		s.status.LastSyncedAt = s.now()
	}
}

// commitLocked は変更後の共通処理。スナップショットを配信し、操作履歴に記録し、
// プレイリストが変わった場合はローカルに保存してからリモート永続化に通知する。
// 呼び出し側はmuを保持していること。
func (s *Session) commitLocked(ctx context.Context, action, detail string, playlistChanged bool) {
	s.publishLocked(surface.ReasonMutation)

	entry := model.ActionEntry{
		ID:        s.newID(),
		Action:    action,
		Detail:    detail,
		Timestamp: s.now(),
	}
	s.actions.Add(entry)
	if s.persist != nil {
		s.persist.EnqueueAction(entry)
	}

	if !playlistChanged {
		return
	}

	if s.local != nil {
		settings := s.settingsLocked()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), localSaveTimeout)
		if err := s.local.SaveSettings(saveCtx, &settings); err != nil {
			s.logger.Error("ローカルへの保存に失敗しました",
				slog.String("action", action),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
	if s.persist != nil {
		s.persist.Notify()
	}
}

func (s *Session) publishLocked(reason string) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishState(reason, s.snap.Clone())
}

func (s *Session) settingsLocked() model.OperatorSettings {
	return model.OperatorSettings{
		OperatorID:   s.operatorID,
		Playlist:     clonePlaylist(s.snap.Playlist),
		CustomThemes: cloneThemes(s.customThemes),
		UpdatedAt:    s.now(),
	}
}

func clonePlaylist(items []model.PresentationItem) []model.PresentationItem {
	out := make([]model.PresentationItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func cloneThemes(themes []model.Theme) []model.Theme {
	out := make([]model.Theme, len(themes))
	copy(out, themes)
	return out
}
