package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/stagecast/internal/surface"
)

// 生成結果
const (
	ResultOpened  = "opened"
	ResultReused  = "reused"
	ResultBlocked = "blocked"
)

const commandTimeout = 5 * time.Second

// Timer はキャンセル可能な遅延実行。
type Timer interface {
	Stop() bool
}

// AfterFunc は遅延実行のファクトリ。テストでは差し替える。
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Recorder はウィンドウ操作の記録インターフェース。
type Recorder interface {
	RecordDisplayOpen(result string)
}

// ControllerConfig はControllerの設定。
type ControllerConfig struct {
	DisplayURL  string
	Width       int
	Height      int
	SettleDelay time.Duration
	ResendDelay time.Duration
	AfterFunc   AfterFunc
	Recorder    Recorder
	OnReopen    func() // ウィンドウ生成後の状態再配信
}

// Controller はディスプレイウィンドウのハンドルを1つだけ保持する。
type Controller struct {
	manager Manager
	cfg     ControllerConfig
	logger  *slog.Logger

	mu      sync.Mutex
	handle  Handle
	pending []Timer
}

// NewController はControllerを生成する。
func NewController(manager Manager, cfg ControllerConfig, logger *slog.Logger) *Controller {
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = stdAfterFunc
	}
	return &Controller{
		manager: manager,
		cfg:     cfg,
		logger:  logger,
	}
}

// OpenDisplaySurface はディスプレイウィンドウを開く。
// 既に開いている場合はフォーカスして既存のハンドルを返す。
// 生成に失敗した場合はErrSurfaceBlockedをラップして返す。
func (c *Controller) OpenDisplaySurface(ctx context.Context) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		if err := c.handle.Focus(ctx); err != nil {
			c.logger.Warn("ディスプレイウィンドウのフォーカスに失敗しました",
				slog.String("error", err.Error()),
			)
		}
		c.record(ResultReused)
		return c.handle, nil
	}

	screens, err := c.manager.Screens(ctx)
	if err != nil {
		c.logger.Warn("画面情報の取得に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	placement := ComputePlacement(screens, c.cfg.Width, c.cfg.Height)

	h, err := c.manager.Open(ctx, c.cfg.DisplayURL, placement)
	if err != nil {
		c.record(ResultBlocked)
		c.logger.Error("ディスプレイウィンドウを開けませんでした",
			slog.String("url", c.cfg.DisplayURL),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, ErrSurfaceBlocked) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSurfaceBlocked, err)
	}

	c.handle = h
	h.OnClose(func() { c.handleClosed(h) })

	if c.cfg.OnReopen != nil {
		c.pending = append(c.pending, c.cfg.AfterFunc(c.cfg.ResendDelay, c.cfg.OnReopen))
	}
	c.pending = append(c.pending, c.cfg.AfterFunc(c.cfg.SettleDelay, func() { c.settle(h) }))

	c.record(ResultOpened)
	c.logger.Info("ディスプレイウィンドウを開きました",
		slog.Int("left", placement.Left),
		slog.Int("top", placement.Top),
		slog.Int("width", placement.Width),
		slog.Int("height", placement.Height),
	)
	return h, nil
}

// CloseDisplaySurface はディスプレイウィンドウを閉じる。開いていなければ何もしない。
func (c *Controller) CloseDisplaySurface() {
	c.mu.Lock()
	h := c.handle
	c.handle = nil
	c.stopPendingLocked()
	c.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		c.logger.Warn("ディスプレイウィンドウのクローズに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	c.logger.Info("ディスプレイウィンドウを閉じました")
}

// ToggleDisplayFullscreen は開いているウィンドウのフルスクリーンを切り替える。
// 開いていなければウィンドウを開く。
func (c *Controller) ToggleDisplayFullscreen(ctx context.Context) error {
	c.mu.Lock()
	h := c.handle
	c.mu.Unlock()

	if h == nil {
		_, err := c.OpenDisplaySurface(ctx)
		return err
	}

	if err := h.Send(ctx, surface.CommandToggleFullscreen); err != nil {
		return fmt.Errorf("フルスクリーン切替コマンドの送信に失敗しました: %w", err)
	}
	if err := h.Focus(ctx); err != nil {
		c.logger.Warn("ディスプレイウィンドウのフォーカスに失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// IsOpen はディスプレイウィンドウが開いているかどうかを返す。
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle != nil
}

// Stop は保留中のタイマーをすべて止める。
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPendingLocked()
}

func (c *Controller) settle(h Handle) {
	c.mu.Lock()
	current := c.handle == h
	c.mu.Unlock()
	if !current {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.Send(ctx, surface.CommandToggleFullscreen); err != nil {
		c.logger.Warn("フルスクリーンコマンドの送信に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	if err := h.Focus(ctx); err != nil {
		c.logger.Warn("ディスプレイウィンドウのフォーカスに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// handleClosed はハンドルがまだ現在のものである場合に限りクリアする。
func (c *Controller) handleClosed(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != h {
		return
	}
	c.handle = nil
	c.stopPendingLocked()
	c.logger.Info("ディスプレイウィンドウが閉じられました")
}

func (c *Controller) stopPendingLocked() {
	for _, t := range c.pending {
		t.Stop()
	}
	c.pending = nil
}

func (c *Controller) record(result string) {
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.RecordDisplayOpen(result)
	}
}
