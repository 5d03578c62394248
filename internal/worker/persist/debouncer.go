// Package persist はコンソール状態のリモート永続化を遅延実行するワーカーを提供する。
// セッションからの変更通知をまとめ、一定時間変更がなくなった時点で
// 最新の設定と溜まった操作履歴をまとめて保存する。
package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/repository"
)

// DefaultMaxPending は保存待ちにできる操作履歴の上限。
// 超えた分は古いものから捨てる。
const DefaultMaxPending = 1000

// Source は保存対象の状態を提供し、同期状態の報告を受け取る。
// console.Sessionが満たす。
type Source interface {
	Settings() model.OperatorSettings
	ReportSync(state model.SyncState, err error)
}

// Timer は停止可能な遅延実行。
type Timer interface {
	Stop() bool
}

// AfterFunc はdの経過後にfを実行するTimerを生成する。
type AfterFunc func(d time.Duration, f func()) Timer

// Recorder は保存結果の記録インターフェース。
type Recorder interface {
	RecordPersist(result string, duration time.Duration)
}

// Config はDebouncerの設定。
type Config struct {
	OperatorID string
	Delay      time.Duration
	Timeout    time.Duration
	MaxPending int
	AfterFunc  AfterFunc
	Recorder   Recorder
}

// Debouncer は変更通知をまとめてリモートへ保存する。
// NotifyとEnqueueActionはセッションのロック中に呼ばれるため、ブロックしない。
type Debouncer struct {
	settings repository.SettingsRepository
	actions  repository.ActionRepository
	cfg      Config
	logger   *slog.Logger

	mu      sync.Mutex
	source  Source
	timer   Timer
	dirty   bool
	pending []model.ActionEntry
	closed  bool

	flushMu sync.Mutex
}

// NewDebouncer はDebouncerを生成する。settingsとactionsはnilでもよく、
// その場合は該当する保存を行わない。
func NewDebouncer(
	settings repository.SettingsRepository,
	actions repository.ActionRepository,
	cfg Config,
	logger *slog.Logger,
) *Debouncer {
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		settings: settings,
		actions:  actions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Attach は保存対象の状態を提供するSourceを設定する。
// セッション生成後に呼ぶ。
func (d *Debouncer) Attach(source Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = source
}

// Notify はプレイリストの変更を通知する。保留中のタイマーはリセットされる。
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.dirty = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.cfg.AfterFunc(d.cfg.Delay, d.fire)
}

// EnqueueAction は操作履歴を保存待ちに追加する。
// タイマーが動いていなければ開始するが、動いているタイマーはリセットしない。
func (d *Debouncer) EnqueueAction(entry model.ActionEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = append(d.pending, entry)
	if over := len(d.pending) - d.cfg.MaxPending; over > 0 {
		d.pending = append(d.pending[:0:0], d.pending[over:]...)
	}
	if d.timer == nil {
		d.timer = d.cfg.AfterFunc(d.cfg.Delay, d.fire)
	}
}

// Pending は保存待ちの操作履歴の件数を返す。
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()
	// 失敗はFlush内でログと同期状態に反映済み
	_ = d.Flush(ctx)
}

// Flush は保存待ちの設定と操作履歴を直ちに保存する。
// 失敗した分は次回の保存で再試行するために保存待ちへ戻す。
func (d *Debouncer) Flush(ctx context.Context) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	source := d.source
	dirty := d.dirty
	pending := d.pending
	d.dirty = false
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if source == nil || (!dirty && len(pending) == 0) {
		d.requeue(dirty, pending)
		return nil
	}

	start := time.Now()
	source.ReportSync(model.SyncStateSyncing, nil)

	var errs []error
	if dirty && d.settings != nil {
		settings := source.Settings()
		settings.OperatorID = d.cfg.OperatorID
		if err := d.settings.Save(ctx, &settings); err != nil {
			errs = append(errs, err)
		} else {
			dirty = false
		}
	} else {
		dirty = false
	}

	if len(pending) > 0 && d.actions != nil {
		if err := d.actions.InsertBatch(ctx, d.cfg.OperatorID, pending); err != nil {
			errs = append(errs, err)
		} else {
			pending = nil
		}
	} else {
		pending = nil
	}

	d.requeue(dirty, pending)

	err := errors.Join(errs...)
	duration := time.Since(start)
	if err != nil {
		d.logger.Error("リモートへの保存に失敗しました",
			slog.String("operator_id", d.cfg.OperatorID),
			slog.String("error", err.Error()),
		)
		d.record("failure", duration)
		source.ReportSync(model.SyncStateError, err)
		return err
	}

	d.logger.Debug("リモートへ保存しました",
		slog.String("operator_id", d.cfg.OperatorID),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	d.record("success", duration)
	source.ReportSync(model.SyncStateIdle, nil)
	return nil
}

// requeue は保存できなかった分を保存待ちの先頭に戻し、再試行のタイマーを開始する。
func (d *Debouncer) requeue(dirty bool, entries []model.ActionEntry) {
	if !dirty && len(entries) == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = d.dirty || dirty
	if len(entries) > 0 {
		d.pending = append(entries, d.pending...)
		if over := len(d.pending) - d.cfg.MaxPending; over > 0 {
			d.pending = d.pending[over:]
		}
	}
	// Source未設定の間はAttach後の通知を待つ
	if !d.closed && d.source != nil && d.timer == nil {
		d.timer = d.cfg.AfterFunc(d.cfg.Delay, d.fire)
	}
}

func (d *Debouncer) record(result string, duration time.Duration) {
	if d.cfg.Recorder != nil {
		d.cfg.Recorder.RecordPersist(result, duration)
	}
}

// Close は以降の通知を無視し、保留中のタイマーを止めて最後の保存を行う。
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	return d.Flush(ctx)
}
