package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/stagecast/internal/middleware"
)

// ConsoleService はルーターが必要とするコンソールの操作全体。console.Sessionが満たす。
type ConsoleService interface {
	StateService
	PlaylistService
	ThemeService
	RemoteExecutor
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	RemoteValidator   middleware.RemoteTokenValidator
	StatusRecorder    middleware.StatusRecorder

	// コンソール
	Console ConsoleService
	Keys    KeyHandler

	// 取り込み
	Builder   ItemBuilder
	Announcer AnnouncementImporter

	// ディスプレイとBGM
	Display DisplayController
	Audio   AudioPlayer

	// リモコン
	RemoteIssuer   RemoteTokenIssuer
	RemoteRecorder RemoteCommandRecorder

	// 運用
	Realtime       http.Handler
	MetricsHandler http.Handler
	HealthCheckers []HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → StatusMetrics → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health、/metrics、/ws はレート制限の外に置く。
// /remote/command はオペレーターのレート制限の代わりに端末単位の制限を受ける。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	consoleHandler := NewConsoleHandler(deps.Console, deps.Keys, deps.Display, deps.Audio)
	playlistHandler := NewPlaylistHandler(deps.Console, deps.Builder, deps.Announcer)
	themeHandler := NewThemeHandler(deps.Console)
	displayHandler := NewDisplayHandler(deps.Display, deps.Audio)
	remoteHandler := NewRemoteHandler(deps.Console, deps.RemoteIssuer, deps.RemoteRecorder)

	// --- レート制限の外のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthCheckers...))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.Realtime != nil {
		r.Handle("/ws", deps.Realtime)
	}

	// --- リモコン ---
	// ミドルウェアスタック: RemoteAuth → RateLimit(Remote)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRemoteAuthMiddleware(deps.RemoteValidator))
		r.Use(deps.RateLimiter.RemoteMiddleware())
		r.Post("/remote/command", remoteHandler.Command)
	})

	// --- オペレーターAPI ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/state", consoleHandler.GetState)
		r.Post("/api/focus", consoleHandler.Focus)
		r.Get("/api/status", consoleHandler.GetStatus)
		r.Get("/api/history", consoleHandler.GetHistory)

		// プレイリスト
		r.Route("/api/playlist", func(r chi.Router) {
			r.Get("/", playlistHandler.GetPlaylist)
			r.Post("/import", playlistHandler.Import)
			r.Post("/announcements", playlistHandler.ImportAnnouncements)
			r.Post("/slides", playlistHandler.AddSlide)
			r.Post("/items", playlistHandler.AddItem)

			r.Route("/items/{id}", func(r chi.Router) {
				r.Patch("/", playlistHandler.RenameItem)
				r.Delete("/", playlistHandler.DeleteItem)
				r.Post("/slides", playlistHandler.AddSlide)

				r.Route("/slides/{slideID}", func(r chi.Router) {
					r.Patch("/", playlistHandler.UpdateSlide)
					r.Delete("/", playlistHandler.DeleteSlide)
					r.Post("/duplicate", playlistHandler.DuplicateSlide)
				})
			})
		})

		// ナビゲーション
		r.Post("/api/nav/select", consoleHandler.Select)
		r.Post("/api/nav/active/{direction}", consoleHandler.StepActive)
		r.Post("/api/nav/live/{direction}", consoleHandler.StepLive)
		r.Post("/api/live", consoleHandler.GoLive)
		r.Delete("/api/live", consoleHandler.StopLive)
		r.Post("/api/flags/{flag}", consoleHandler.ToggleFlag)
		r.Post("/api/keys", consoleHandler.HandleKey)

		// テーマ
		r.Route("/api/theme", func(r chi.Router) {
			r.Put("/staged", themeHandler.Stage)
			r.Post("/apply", themeHandler.Apply)
			r.Post("/discard", themeHandler.Discard)
			r.Post("/undo", themeHandler.Undo)
			r.Post("/restore-original", themeHandler.RestoreOriginal)
			r.Post("/font-size", themeHandler.FontSize)
			r.Get("/presets", themeHandler.ListPresets)
			r.Post("/presets/{name}", themeHandler.StagePreset)
			r.Get("/history", themeHandler.History)
			r.Post("/history/{index}/restore", themeHandler.RestoreEntry)
			r.Post("/custom", themeHandler.SaveCustom)
		})

		// ディスプレイとBGM
		r.Post("/api/display/open", displayHandler.Open)
		r.Post("/api/display/close", displayHandler.Close)
		r.Post("/api/display/fullscreen", displayHandler.Fullscreen)
		r.Post("/api/audio/track", displayHandler.LoadTrack)
		r.Post("/api/audio/toggle", displayHandler.Toggle)
		r.Post("/api/audio/seek", displayHandler.Seek)
		r.Delete("/api/audio", displayHandler.StopAudio)

		// リモコンのペアリング
		r.Post("/api/remote/pair", remoteHandler.Pair)
	})

	return r
}
