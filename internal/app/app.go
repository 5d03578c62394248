package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/stagecast/internal/bus"
	"github.com/hitoshi/stagecast/internal/config"
	"github.com/hitoshi/stagecast/internal/console"
	"github.com/hitoshi/stagecast/internal/database"
	"github.com/hitoshi/stagecast/internal/handler"
	"github.com/hitoshi/stagecast/internal/ingest"
	"github.com/hitoshi/stagecast/internal/logger"
	"github.com/hitoshi/stagecast/internal/metrics"
	"github.com/hitoshi/stagecast/internal/middleware"
	"github.com/hitoshi/stagecast/internal/model"
	"github.com/hitoshi/stagecast/internal/playback"
	"github.com/hitoshi/stagecast/internal/realtime"
	"github.com/hitoshi/stagecast/internal/repository"
	"github.com/hitoshi/stagecast/internal/security"
	"github.com/hitoshi/stagecast/internal/surface"
	"github.com/hitoshi/stagecast/internal/theme"
	"github.com/hitoshi/stagecast/internal/window"
	"github.com/hitoshi/stagecast/internal/worker/cleanup"
	"github.com/hitoshi/stagecast/internal/worker/persist"
	"github.com/hitoshi/stagecast/internal/worker/refresh"
)

// ErrDatabaseRequired はDATABASE_URLが必要なコマンドで未設定だった場合のエラー。
var ErrDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログレベルを反映する
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("operator_id", cfg.OperatorID),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// stores はserveモードが開く保存先。remoteはDATABASE_URL未設定時にnil。
type stores struct {
	local  *sql.DB
	remote *sql.DB
}

func (s *stores) Close() {
	if s.remote != nil {
		s.remote.Close()
	}
	if s.local != nil {
		s.local.Close()
	}
}

// healthCheckers は開いている保存先をヘルスチェック対象として返す。
func (s *stores) healthCheckers() []handler.HealthChecker {
	checkers := []handler.HealthChecker{s.local}
	if s.remote != nil {
		checkers = append(checkers, s.remote)
	}
	return checkers
}

// openStores はローカルのSQLiteを開き、DATABASE_URLがあればPostgreSQLにも接続する。
func openStores(cfg *config.Config) (*stores, error) {
	local, err := database.OpenLocal(cfg.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	s := &stores{local: local}

	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set, remote persistence disabled")
		return s, nil
	}

	remote, err := openRemote(cfg.DatabaseURL)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.remote = remote
	return s, nil
}

func openRemote(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// newWindowManager はWINDOW_BACKENDに従ってウィンドウのManagerを返す。
// rodの場合は終了時に閉じる関数も返す。
func newWindowManager(cfg *config.Config, log *slog.Logger) (window.Manager, func()) {
	if cfg.WindowBackend == config.WindowBackendNone {
		slog.Info("display window backend disabled")
		return window.Unavailable{}, func() {}
	}
	rod := window.NewRodManager(window.RodConfig{
		Bin:          cfg.BrowserBin,
		Headless:     cfg.BrowserHeadless,
		ScreenWidth:  cfg.DisplayWidth,
		ScreenHeight: cfg.DisplayHeight,
	}, log)
	return rod, func() {
		if err := rod.Close(); err != nil {
			slog.Warn("failed to close browser", slog.String("error", err.Error()))
		}
	}
}

// runServe はAPIサーバーモードで起動する。
// 保存先を開き、コンソールセッションを復元し、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. 保存先
	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 3. バスとコンソール側の同期
	b := bus.New(
		bus.WithBuffer(cfg.BusBuffer),
		bus.WithRecorder(collector),
		bus.WithLogger(log),
	)
	consoleSync := surface.NewConsoleSync(b.Join(surface.ChannelName), log, collector)
	defer consoleSync.Leave()

	// 4. 永続化
	localRepo := repository.NewSQLiteSettingsRepo(st.local)
	repos := []repository.SettingsRepository{localRepo}
	var debouncer *persist.Debouncer
	if st.remote != nil {
		remoteSettings := repository.NewPostgresSettingsRepo(st.remote)
		repos = append(repos, remoteSettings)
		debouncer = persist.NewDebouncer(
			remoteSettings,
			repository.NewPostgresActionRepo(st.remote),
			persist.Config{
				OperatorID: cfg.OperatorID,
				Delay:      cfg.PersistDebounce,
				Timeout:    cfg.PersistTimeout,
				Recorder:   collector,
			},
			log,
		)
	}

	// 5. コンソールセッション
	presets, err := theme.LoadPresets()
	if err != nil {
		return fmt.Errorf("failed to load theme presets: %w", err)
	}
	deps := console.Deps{
		OperatorID: cfg.OperatorID,
		Publisher:  consoleSync,
		LocalStore: localRepo,
		Presets:    presets,
		Logger:     log,
		NewID:      uuid.NewString,
	}
	if debouncer != nil {
		deps.Persister = debouncer
	}
	session := console.New(deps)
	if debouncer != nil {
		debouncer.Attach(session)
	}

	restoreCtx, restoreCancel := context.WithTimeout(ctx, cfg.PersistTimeout)
	saved, err := repository.LoadNewest(restoreCtx, cfg.OperatorID, repos...)
	restoreCancel()
	if err != nil {
		slog.Warn("failed to load saved settings, starting empty", slog.String("error", err.Error()))
	} else if saved != nil {
		session.Restore(saved)
		slog.Info("console settings restored",
			slog.Int("items", len(saved.Playlist)),
			slog.Time("updated_at", saved.UpdatedAt),
		)
	}

	go consoleSync.Run(ctx, session)

	// 6. ディスプレイ側の同期状態をプロセス内で監視する
	monitor := surface.NewDisplaySync(b.Join(surface.ChannelName), log)
	defer monitor.Leave()
	monitor.OnUpdate(func(snap model.Snapshot) {
		slog.Debug("display state updated",
			slog.String("live_item_id", snap.LiveItemID),
			slog.Int("live_slide_index", snap.LiveSlideIndex),
			slog.Bool("blackout", snap.Blackout),
		)
	})
	go monitor.Start(ctx)

	// 7. ディスプレイウィンドウ
	manager, closeManager := newWindowManager(cfg, log)
	defer closeManager()
	controller := window.NewController(manager, window.ControllerConfig{
		DisplayURL:  cfg.DisplayURL(),
		Width:       cfg.DisplayWidth,
		Height:      cfg.DisplayHeight,
		SettleDelay: cfg.DisplaySettleDelay,
		ResendDelay: cfg.DisplayStateResend,
		Recorder:    collector,
		OnReopen:    session.Republish,
	}, log)
	defer controller.Stop()

	keymap := console.NewKeymap(session, controller)
	audio := playback.NewEstimator(nil, playback.PublisherFunc(consoleSync.PublishMedia))

	// 8. 取り込み
	ssrfGuard := security.NewSSRFGuard()
	builder := ingest.NewBuilder(security.NewContentSanitizer())
	announcer := ingest.NewAnnouncementImporter(ssrfGuard, builder, ingest.AnnouncementConfig{
		Limits: ingest.FetchLimits{
			Timeout:     cfg.FetchTimeout,
			MaxBodySize: cfg.FetchMaxSize,
		},
		Recorder: collector,
	}, log)

	scheduler := refresh.NewScheduler(session, announcer, log, cfg.FetchMaxConcurrent)
	go scheduler.Start(ctx, cfg.FeedRefreshInterval)

	// 9. リモコン
	tokens, err := security.NewRemoteTokenService(cfg.RemoteTokenSecret, cfg.RemoteTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize remote tokens: %w", err)
	}

	// 10. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitRemote),
	)
	defer rateLimiter.Stop()

	bridge := realtime.NewBridge(b, realtime.BridgeConfig{
		AllowedOrigin: cfg.CORSAllowedOrigin,
		Recorder:      collector,
	}, log)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		RemoteValidator:   tokens,
		StatusRecorder:    collector,

		Console: session,
		Keys:    keymap,

		Builder:   builder,
		Announcer: announcer,

		Display: controller,
		Audio:   audio,

		RemoteIssuer:   tokens,
		RemoteRecorder: collector,

		Realtime:       bridge,
		MetricsHandler: metrics.Handler(reg),
		HealthCheckers: st.healthCheckers(),
	})

	// 11. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("window_backend", cfg.WindowBackend),
			slog.Bool("remote_persistence", st.remote != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// バックグラウンド処理を止めてから、保留中の保存を書き出す
	cancel()
	controller.Stop()
	if debouncer != nil {
		if err := debouncer.Close(shutdownCtx); err != nil {
			slog.Error("failed to flush pending settings", slog.String("error", err.Error()))
		}
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// PostgreSQLに接続し、古い操作履歴のクリーンアップを日次で実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if err := CommandWorker.requireRemote(cfg); err != nil {
		return err
	}

	db, err := openRemote(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), cfg.LogRetentionDays)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("log_retention_days", cfg.LogRetentionDays),
	)

	// 起動直後に1回実行し、以降は日次で実行する（ブロッキング）
	cleanupJob.Start(ctx, 24*time.Hour)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if err := CommandMigrate.requireRemote(cfg); err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrationsWithVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
