package window

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig はRodManagerの設定。
type RodConfig struct {
	// Bin はChromeの実行ファイル。空の場合はlauncherの既定値を使う。
	Bin      string
	Headless bool
	// ScreenWidth/ScreenHeight は画面情報を取得できないときのプライマリ画面の大きさ。
	ScreenWidth  int
	ScreenHeight int
}

// RodManager はChromeをDevTools Protocol経由で操作するManager。
// ブラウザは最初の要求で起動し、ディスプレイごとに新しいウィンドウを開く。
type RodManager struct {
	cfg    RodConfig
	logger *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	handles map[proto.TargetTargetID]*rodHandle
}

// NewRodManager はRodManagerを生成する。Chromeはまだ起動しない。
func NewRodManager(cfg RodConfig, logger *slog.Logger) *RodManager {
	return &RodManager{
		cfg:     cfg,
		logger:  logger,
		handles: make(map[proto.TargetTargetID]*rodHandle),
	}
}

// Screens はブラウザから見えるプライマリ画面の情報を返す。
func (m *RodManager) Screens(ctx context.Context) ([]Screen, error) {
	fallback := []Screen{{Width: m.cfg.ScreenWidth, Height: m.cfg.ScreenHeight, Primary: true}}

	b, err := m.connect(ctx)
	if err != nil {
		return fallback, err
	}
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return fallback, nil
	}

	res, err := pages.First().Context(ctx).Eval(`() => ({
		left: screen.availLeft || 0,
		top: screen.availTop || 0,
		width: screen.availWidth,
		height: screen.availHeight
	})`)
	if err != nil {
		return fallback, fmt.Errorf("画面情報の取得に失敗しました: %w", err)
	}

	return []Screen{{
		Left:    res.Value.Get("left").Int(),
		Top:     res.Value.Get("top").Int(),
		Width:   res.Value.Get("width").Int(),
		Height:  res.Value.Get("height").Int(),
		Primary: true,
	}}, nil
}

// Open は新しいウィンドウでURLを開き、配置ヒントに従って移動する。
func (m *RodManager) Open(ctx context.Context, url string, p Placement) (Handle, error) {
	b, err := m.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceBlocked, err)
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url, NewWindow: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSurfaceBlocked, err)
	}
	// ハンドルは要求より長く生きる
	page = page.Context(context.Background())

	left, top, width, height := p.Left, p.Top, p.Width, p.Height
	if err := page.SetWindow(&proto.BrowserBounds{
		Left:   &left,
		Top:    &top,
		Width:  &width,
		Height: &height,
	}); err != nil {
		m.logger.Warn("ウィンドウの配置に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	h := &rodHandle{page: page}

	m.mu.Lock()
	m.handles[page.TargetID] = h
	m.mu.Unlock()

	return h, nil
}

// Close はブラウザを終了する。
func (m *RodManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}

func (m *RodManager) connect(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return m.browser, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := launcher.New().Headless(m.cfg.Headless)
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("ブラウザの起動に失敗しました: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("ブラウザへの接続に失敗しました: %w", err)
	}

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		m.logger.Warn("ターゲット監視の開始に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	go b.EachEvent(func(e *proto.TargetTargetDestroyed) {
		m.targetDestroyed(e.TargetID)
	})()

	m.browser = b
	m.lnch = l
	m.logger.Info("ディスプレイ用ブラウザを起動しました", slog.String("url", u))
	return b, nil
}

func (m *RodManager) targetDestroyed(id proto.TargetTargetID) {
	m.mu.Lock()
	h, ok := m.handles[id]
	delete(m.handles, id)
	m.mu.Unlock()

	if ok {
		h.fireClosed()
	}
}

// rodHandle は1つのページターゲットを指すHandle。
type rodHandle struct {
	page *rod.Page

	mu      sync.Mutex
	onClose []func()
	closed  bool
}

func (h *rodHandle) Focus(ctx context.Context) error {
	_, err := h.page.Context(ctx).Activate()
	return err
}

// Send はページ内へwindow.postMessageでコマンドを届ける。
func (h *rodHandle) Send(ctx context.Context, cmd string) error {
	_, err := h.page.Context(ctx).Eval(`(cmd) => window.postMessage(cmd, "*")`, cmd)
	return err
}

func (h *rodHandle) Close() error {
	err := h.page.Close()
	h.fireClosed()
	return err
}

// OnClose は閉じたときの通知先を登録する。既に閉じていれば別goroutineで直ちに呼ぶ。
func (h *rodHandle) OnClose(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		// 呼び出し側がロックを保持したまま登録することがある
		go fn()
		return
	}
	h.onClose = append(h.onClose, fn)
}

func (h *rodHandle) fireClosed() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	fns := h.onClose
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
