package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/stagecast/internal/model"
)

// DefaultMaxEntries はお知らせアイテムに含めるエントリ数の既定値。
const DefaultMaxEntries = 10

// defaultAnnouncementTitle はフィードにタイトルがない場合のアイテム名。
const defaultAnnouncementTitle = "お知らせ"

// Recorder はフィード取得結果の記録インターフェース。
type Recorder interface {
	RecordAnnouncementFetch(result string, duration time.Duration)
}

// AnnouncementConfig はAnnouncementImporterの設定。
type AnnouncementConfig struct {
	Limits     FetchLimits
	MaxEntries int
	Recorder   Recorder
}

// AnnouncementImporter はRSS/Atomフィードをお知らせアイテムとして取り込む。
// エントリ1件をテキストスライド1枚にし、ラベルにエントリのタイトルを使う。
type AnnouncementImporter struct {
	detector   *FeedDetector
	builder    *Builder
	maxEntries int
	recorder   Recorder
	logger     *slog.Logger
}

// NewAnnouncementImporter はAnnouncementImporterを生成する。
func NewAnnouncementImporter(
	ssrfGuard SSRFValidator,
	builder *Builder,
	cfg AnnouncementConfig,
	logger *slog.Logger,
) *AnnouncementImporter {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnouncementImporter{
		detector:   NewFeedDetector(ssrfGuard, cfg.Limits),
		builder:    builder,
		maxEntries: cfg.MaxEntries,
		recorder:   cfg.Recorder,
		logger:     logger,
	}
}

// IsRefreshable はアイテムがフィードから再取得できるかを返す。
func IsRefreshable(item model.PresentationItem) bool {
	if item.IsDivider() || item.OriginQuery == "" {
		return false
	}
	u, err := url.Parse(item.OriginQuery)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Import はURLからフィードを見つけて取得し、新しいお知らせアイテムを組み立てる。
// アイテムのoriginQueryには実際に取得したフィードのURLを入れる。
func (a *AnnouncementImporter) Import(ctx context.Context, rawURL string) (model.PresentationItem, error) {
	feedURL, err := a.detector.DetectFeedURL(ctx, rawURL)
	if err != nil {
		return model.PresentationItem{}, err
	}

	feed, err := a.fetch(ctx, feedURL)
	if err != nil {
		return model.PresentationItem{}, err
	}

	title := strings.TrimSpace(feed.Title)
	if title == "" {
		title = defaultAnnouncementTitle
	}

	item, err := a.builder.NewItem(ItemRequest{
		Title:       title,
		Kind:        model.ItemKindCustom,
		Slides:      a.entrySlides(feed),
		OriginQuery: feedURL,
	})
	if err != nil {
		return model.PresentationItem{}, err
	}

	a.logger.Info("お知らせフィードを取り込みました",
		slog.String("feed_url", feedURL),
		slog.String("item_id", item.ID),
		slog.Int("slides", len(item.Slides)),
	)
	return item, nil
}

// Refresh はアイテムのoriginQueryからフィードを取得し直し、新しいスライドを返す。
func (a *AnnouncementImporter) Refresh(ctx context.Context, item model.PresentationItem) ([]model.Slide, error) {
	if !IsRefreshable(item) {
		return nil, model.NewNotRefreshableError(item.ID)
	}

	feed, err := a.fetch(ctx, item.OriginQuery)
	if err != nil {
		return nil, err
	}

	reqs := a.entrySlides(feed)
	if len(reqs) == 0 {
		return nil, model.NewParseFailedError()
	}
	return a.builder.BuildSlides(reqs)
}

// fetch はフィードURLを取得してパースする。
func (a *AnnouncementImporter) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	start := time.Now()

	resp, body, err := a.detector.get(ctx, feedURL)
	if err != nil {
		a.record("fetch_error", start)
		return nil, err
	}

	if result := ClassifyHTTPStatus(resp.StatusCode); result != FetchResultOK {
		a.record(result.String(), start)
		a.logger.Warn("お知らせフィードの取得に失敗しました",
			slog.String("feed_url", feedURL),
			slog.Int("http_status", resp.StatusCode),
			slog.String("result", result.String()),
		)
		return nil, model.NewFetchFailedError(fmt.Sprintf("HTTPステータス %d", resp.StatusCode))
	}

	// gofeed.Parserは内部状態を持つため取得ごとに生成する
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		a.record("parse_error", start)
		a.logger.Warn("お知らせフィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewParseFailedError()
	}

	a.record("success", start)
	return feed, nil
}

// entrySlides はフィードのエントリを先頭から最大maxEntries件、スライド入力に変換する。
// 本文は要約を優先し、要約も本文もないエントリはタイトルだけのスライドにする。
func (a *AnnouncementImporter) entrySlides(feed *gofeed.Feed) []SlideRequest {
	reqs := make([]SlideRequest, 0, min(len(feed.Items), a.maxEntries))
	for _, entry := range feed.Items {
		if len(reqs) >= a.maxEntries {
			break
		}
		if entry == nil {
			continue
		}

		title := strings.TrimSpace(entry.Title)
		content := entry.Description
		if strings.TrimSpace(content) == "" {
			content = entry.Content
		}
		if strings.TrimSpace(content) == "" {
			content = title
		}
		if strings.TrimSpace(content) == "" {
			continue
		}

		reqs = append(reqs, SlideRequest{
			Kind:          model.SlideKindText,
			Content:       content,
			Label:         title,
			OperatorNotes: entry.Link,
		})
	}
	return reqs
}

func (a *AnnouncementImporter) record(result string, start time.Time) {
	if a.recorder != nil {
		a.recorder.RecordAnnouncementFetch(result, time.Since(start))
	}
}
