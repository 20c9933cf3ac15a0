package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/pqcall/pqcall-go/internal/core/service"
	"github.com/pqcall/pqcall-go/internal/infra/buildinfo"
	"github.com/pqcall/pqcall-go/internal/infra/confloader"
	"github.com/pqcall/pqcall-go/internal/infra/shutdown"
	"github.com/pqcall/pqcall-go/internal/server/config"
	"github.com/pqcall/pqcall-go/internal/server/httpserver"
	"github.com/pqcall/pqcall-go/internal/storage"
	"github.com/pqcall/pqcall-go/internal/storage/memory"
	"github.com/pqcall/pqcall-go/internal/telemetry/logger"
	"github.com/pqcall/pqcall-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pqcall-server %s\n", buildinfo.Get())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	log.Info("starting pqcall-server",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", *configFile,
	)

	store, err := initStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	metrics := metric.Global()
	services, err := initServices(cfg, store, log, metrics)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	metrics.RegisterCollector(metric.NewCollector(services.Calls.Snapshot))

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Tokens:    services.Tokens,
		Calls:     services.Calls,
		Signaling: services.Signaling,
		Logger:    log,
		Metrics:   metrics,
	})
	httpServer := httpserver.New(cfg.Server.HTTP.Addr, router,
		cfg.Server.HTTP.ReadTimeout, cfg.Server.HTTP.WriteTimeout)

	services.Sweeper.Start()

	// Re-reading the config file on change only adjusts the log level;
	// everything else requires a restart.
	var watcher *confloader.Watcher
	if *configFile != "" {
		watcher, err = newConfigWatcher(*configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		}
	}

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing storage")
		return store.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping sweeper")
		services.Sweeper.Stop()
		return nil
	})
	if watcher != nil {
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			return watcher.Stop()
		})
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file, and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initStorage selects the token storage backend.
func initStorage(cfg *config.ServerConfig, log *slog.Logger) (service.TokenStorage, error) {
	switch cfg.Storage.Backend {
	case "badger":
		return storage.NewBadgerStore(storage.DefaultBadgerConfig(cfg.Storage.DataDir), log)
	default:
		return memory.New(), nil
	}
}

// Services holds the wired core services.
type Services struct {
	Tokens    *service.TokenManager
	Calls     *service.CallRouter
	Signaling *service.SignalingProtocol
	Sweeper   *service.Sweeper
}

// initServices wires the core service stack in dependency order.
func initServices(cfg *config.ServerConfig, store service.TokenStorage, log *slog.Logger, metrics *metric.Registry) (*Services, error) {
	tokens, err := service.NewTokenManager(service.TokenManagerConfig{
		TokenTTL:         cfg.Token.TTL,
		MaxActivePerUser: cfg.Token.MaxActivePerUser,
	}, store, log, metrics)
	if err != nil {
		return nil, err
	}

	privacy := service.NewPrivacyLayer(log)
	keys := service.NewEncryptionManager(log)

	mapper, err := service.NewTokenMapper(tokens, privacy, log)
	if err != nil {
		return nil, err
	}

	sessions, err := service.NewSessionManager(service.SessionManagerConfig{
		MaxActiveSessions: cfg.Session.MaxActive,
		RingingTimeout:    cfg.Session.RingingTimeout,
		MaxCallDuration:   cfg.Session.MaxCallDuration,
	}, privacy, keys, log, metrics)
	if err != nil {
		return nil, err
	}

	signaling, err := service.NewSignalingProtocol(service.SignalingConfig{
		FreshnessWindow: cfg.Signaling.FreshnessWindow,
		ReplayCacheSize: cfg.Signaling.ReplayCacheSize,
		ReplayTTL:       cfg.Signaling.ReplayTTL,
	}, keys, log, metrics)
	if err != nil {
		return nil, err
	}

	calls, err := service.NewCallRouter(mapper, privacy, sessions, signaling, keys, log, metrics)
	if err != nil {
		return nil, err
	}

	sweeper, err := service.NewSweeper(service.SweeperConfig{
		TokenSweepInterval:   cfg.Sweep.TokenInterval,
		SessionSweepInterval: cfg.Sweep.SessionInterval,
		ReplaySweepInterval:  cfg.Sweep.ReplayInterval,
	}, tokens, sessions, signaling, log)
	if err != nil {
		return nil, err
	}

	return &Services{
		Tokens:    tokens,
		Calls:     calls,
		Signaling: signaling,
		Sweeper:   sweeper,
	}, nil
}

// newConfigWatcher reloads the log level when the config file changes.
func newConfigWatcher(configFile string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(log)
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(path string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level reloaded", "level", cfg.Log.Level)
	})
	watcher.StartAsync()
	return watcher, nil
}
