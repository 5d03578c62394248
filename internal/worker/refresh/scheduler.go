// Package refresh はフィードから取り込んだお知らせアイテムの定期更新を提供する。
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/stagecast/internal/ingest"
	"github.com/hitoshi/stagecast/internal/model"
)

// Playlist は更新対象のアイテムを提供し、更新結果を受け取る。
// console.Sessionが満たす。
type Playlist interface {
	Playlist() ([]model.PresentationItem, []model.Theme)
	ReplaceSlides(ctx context.Context, itemID string, slides []model.Slide) error
}

// Refresher は1アイテム分のスライドを取得し直す。
// ingest.AnnouncementImporterが満たす。
type Refresher interface {
	Refresh(ctx context.Context, item model.PresentationItem) ([]model.Slide, error)
}

// Scheduler はoriginQueryにフィードURLを持つアイテムを一定間隔で更新する。
// 並列数はsemaphoreで制限し、失敗したアイテムには指数バックオフを適用する。
type Scheduler struct {
	playlist       Playlist
	refresher      Refresher
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time

	mu      sync.Mutex
	backoff map[string]backoffState
}

// NewScheduler はSchedulerを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewScheduler(playlist Playlist, refresher Refresher, logger *slog.Logger, maxConcurrency int) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		playlist:       playlist,
		refresher:      refresher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
		backoff:        make(map[string]backoffState),
	}
}

// Start はinterval間隔で更新を実行する。
// 起動直後には実行せず、コンテキストがキャンセルされるまで継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("お知らせ更新スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("お知らせ更新スケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は更新対象のアイテムを並列で1回ずつ更新し、更新できた件数を返す。
func (s *Scheduler) RunOnce(ctx context.Context) int {
	start := s.now()
	items := s.dueItems()
	if len(items) == 0 {
		s.logger.Debug("更新対象のお知らせはありません")
		return 0
	}

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	updated := 0

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(it model.PresentationItem) {
			defer wg.Done()
			defer func() { <-sem }()

			if s.refreshItem(ctx, it) {
				mu.Lock()
				updated++
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	s.logger.Info("お知らせの更新サイクルが完了しました",
		slog.Int("item_count", len(items)),
		slog.Int("updated", updated),
		slog.Float64("duration_ms", float64(s.now().Sub(start).Milliseconds())),
	)
	return updated
}

// dueItems は再取得できるアイテムのうち、バックオフ中でないものを返す。
// プレイリストから消えたアイテムのバックオフ状態はここで捨てる。
func (s *Scheduler) dueItems() []model.PresentationItem {
	playlist, _ := s.playlist.Playlist()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]bool, len(playlist))
	var due []model.PresentationItem
	for _, it := range playlist {
		present[it.ID] = true
		if !ingest.IsRefreshable(it) {
			continue
		}
		if st, ok := s.backoff[it.ID]; ok && now.Before(st.nextAttempt) {
			continue
		}
		due = append(due, it)
	}
	for id := range s.backoff {
		if !present[id] {
			delete(s.backoff, id)
		}
	}
	return due
}

// refreshItem は1アイテムを取得し直し、内容が変わっていればスライドを置き換える。
func (s *Scheduler) refreshItem(ctx context.Context, item model.PresentationItem) bool {
	slides, err := s.refresher.Refresh(ctx, item)
	if err != nil {
		s.fail(item, err)
		return false
	}
	s.succeed(item.ID)

	if sameSlides(item.Slides, slides) {
		return false
	}
	if err := s.playlist.ReplaceSlides(ctx, item.ID, slides); err != nil {
		// 取得中に削除されたアイテムは無視する
		s.logger.Warn("お知らせのスライドを置き換えられませんでした",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.Info("お知らせを更新しました",
		slog.String("item_id", item.ID),
		slog.String("feed_url", item.OriginQuery),
		slog.Int("slides", len(slides)),
	)
	return true
}

func (s *Scheduler) fail(item model.PresentationItem, err error) {
	s.mu.Lock()
	st := s.backoff[item.ID]
	st.consecutiveErrors++
	delay := CalculateBackoff(st.consecutiveErrors)
	st.nextAttempt = s.now().Add(delay)
	s.backoff[item.ID] = st
	s.mu.Unlock()

	s.logger.Error("お知らせの更新に失敗しました",
		slog.String("item_id", item.ID),
		slog.String("feed_url", item.OriginQuery),
		slog.Int("consecutive_errors", st.consecutiveErrors),
		slog.Duration("retry_in", delay),
		slog.String("error", err.Error()),
	)
}

func (s *Scheduler) succeed(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.backoff, itemID)
}

// sameSlides はIDを除いた表示内容が同じかどうかを返す。
func sameSlides(a, b []model.Slide) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		x.ID, y.ID = "", ""
		if x != y {
			return false
		}
	}
	return true
}
