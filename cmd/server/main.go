package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/phishguard/phishguard/internal/alerts"
	"github.com/phishguard/phishguard/internal/analyzer"
	"github.com/phishguard/phishguard/internal/api"
	"github.com/phishguard/phishguard/internal/app"
	"github.com/phishguard/phishguard/internal/database"
	"github.com/phishguard/phishguard/internal/realtime"
	"github.com/phishguard/phishguard/internal/storage"
	"github.com/phishguard/phishguard/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("phishguard-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	backend, closeBackend := selectStorageBackend(cfg, db, log)
	defer func() {
		if err := closeBackend(); err != nil {
			log.Warn("close storage backend failed", zap.Error(err))
		}
	}()

	store := alerts.NewStore(backend,
		alerts.WithMaxAlerts(cfg.Alerts.MaxAlerts),
		alerts.WithDedupWindow(cfg.Alerts.DedupWindow),
		alerts.WithStorageKey(cfg.Storage.Key),
	)

	hub := realtime.NewHub()
	defer hub.Close()

	bridge := realtime.NewBridge(hub)
	unsubscribe := store.Subscribe(bridge.OnStoreEvent)
	defer unsubscribe()

	var presenter *alerts.Presenter
	if cfg.Notifier.Enabled {
		presenter = alerts.NewPresenter(store, realtime.NewHubCue(hub, cfg.Notifier.Sound),
			alerts.WithDismissTimeout(cfg.Notifier.DismissTimeout),
			alerts.WithPresenterListener(bridge.OnPresenterEvent),
		)
		presenter.Start()
		defer presenter.Stop()
	}

	sweeper := alerts.NewSweeper(store,
		alerts.WithRetentionWindow(cfg.Alerts.Retention.Window),
		alerts.WithSweepSchedule(cfg.Alerts.Retention.Schedule),
	)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start retention sweeper: %w", err)
	}
	defer func() {
		<-sweeper.Stop().Done()
	}()

	var engine *analyzer.Client
	if base := strings.TrimSpace(cfg.Analyzer.BaseURL); base != "" {
		engine, err = analyzer.NewClient(base, analyzer.WithTimeout(cfg.Analyzer.Timeout))
		if err != nil {
			return fmt.Errorf("initialise analyzer client: %w", err)
		}
	} else {
		log.Warn("analyzer base URL not configured; analysis endpoints disabled")
	}

	router, err := api.NewRouter(api.Dependencies{
		Config:    cfg,
		DB:        db,
		Store:     store,
		Presenter: presenter,
		Sweeper:   sweeper,
		Hub:       hub,
		Analyzer:  engine,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErrs error
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		shutdownErrs = multierr.Append(shutdownErrs, fmt.Errorf("graceful shutdown: %w", err))
	}

	if err, ok := <-serverErr; ok && err != nil {
		shutdownErrs = multierr.Append(shutdownErrs, fmt.Errorf("server error: %w", err))
	}

	if shutdownErrs != nil {
		return shutdownErrs
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = cfg.Database.MySQL.Password
	}

	return dbCfg
}

// selectStorageBackend picks the durable store for the alert sequence. A
// misconfigured Redis backend falls back to the database so alerts are never
// held in memory only.
func selectStorageBackend(cfg *app.Config, db *gorm.DB, log *zap.Logger) (storage.Store, func() error) {
	noop := func() error { return nil }

	if strings.EqualFold(strings.TrimSpace(cfg.Storage.Backend), "redis") {
		redisStore, err := storage.NewRedisStore(storage.RedisConfig{
			Address:  cfg.Storage.Redis.Address,
			Username: cfg.Storage.Redis.Username,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Timeout:  cfg.Storage.Redis.Timeout,
		})
		if err != nil {
			log.Warn("redis unavailable; falling back to database storage", zap.Error(err))
		} else {
			log.Info("redis storage connected", zap.String("addr", cfg.Storage.Redis.Address))
			return redisStore, redisStore.Close
		}
	}

	return storage.NewDatabaseStore(db), noop
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("resolve sql.DB for shutdown failed", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database failed", zap.Error(err))
	}
}
