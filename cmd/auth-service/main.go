package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-tenant-auth/internal/cache"
	"github.com/pribylovaa/go-tenant-auth/internal/config"
	"github.com/pribylovaa/go-tenant-auth/internal/dispatch"
	transport "github.com/pribylovaa/go-tenant-auth/internal/http"
	"github.com/pribylovaa/go-tenant-auth/internal/janitor"
	"github.com/pribylovaa/go-tenant-auth/internal/metrics"
	"github.com/pribylovaa/go-tenant-auth/internal/registry"
	"github.com/pribylovaa/go-tenant-auth/internal/service"
	"github.com/pribylovaa/go-tenant-auth/internal/storage"
	"github.com/pribylovaa/go-tenant-auth/internal/storage/memory"
	"github.com/pribylovaa/go-tenant-auth/internal/storage/postgres"
	"github.com/pribylovaa/go-tenant-auth/internal/tokens"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	str, err := openStorage(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer str.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	opts := []tokens.Option{tokens.WithMetrics(m)}

	// Зеркало отзывов в Redis — только если задан адрес.
	if cfg.Redis.RedisURL != "" {
		redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
		mirror, err := cache.NewRedisMirror(redisCtx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
		redisCancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			return err
		}
		defer func() { _ = mirror.Close() }()

		opts = append(opts, tokens.WithMirror(mirror))
		log.Info("redis_connected")
	}

	engine, err := tokens.New(str, registry.New(cfg.Tokens.BlacklistTTL), cfg.Tokens, opts...)
	if err != nil {
		return err
	}

	srvc, err := service.New(str, engine, newDispatcher(cfg.Mail, cfg.Env, m, log), cfg.Account)
	if err != nil {
		return err
	}
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready

	api := transport.NewRouter(srvc, transport.Options{
		Logger:  log,
		Metrics: m,
		Timeout: cfg.Timeouts.Request,
		Cookies: cfg.Cookie,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Фоновые очистки: чёрный список access-токенов и устаревшие записи токенов.
	jctx, jcancel := context.WithCancel(ctx)
	defer jcancel()

	sweepDone := janitor.Start(jctx, log, "blacklist_sweep", cfg.Janitor.BlacklistSweep, func(context.Context) error {
		if n := engine.SweepBlacklist(); n > 0 {
			log.Debug("blacklist_swept", slog.Int("removed", n))
		}
		return nil
	})
	cleanupDone := janitor.Start(jctx, log, "token_cleanup", cfg.Janitor.TokenCleanup, func(ctx context.Context) error {
		n, err := engine.PurgeStale(ctx, cfg.Janitor.TokenRetention)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("stale_tokens_purged", slog.Int64("count", n))
		}
		return nil
	})

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}

	jcancel()
	<-sweepDone
	<-cleanupDone

	return serveErr
}

// openStorage подключает хранилище по cfg.Driver.
func openStorage(ctx context.Context, cfg config.DBConfig, log *slog.Logger) (storage.Storage, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("memory_storage_in_use")
		return memory.New(), nil
	}

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	str, err := postgres.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		return nil, err
	}
	log.Info("postgres_connected")

	return str, nil
}

// newDispatcher возвращает клиента провайдера писем; без эндпоинтов письма только логируются,
// ссылки видны в логе только в локальном окружении.
func newDispatcher(cfg config.MailConfig, env string, m *metrics.Metrics, log *slog.Logger) dispatch.Dispatcher {
	if cfg.EmailVerificationURL == "" && cfg.AccountVerificationURL == "" && cfg.ResetPasswordURL == "" {
		log.Warn("mail_provider_not_configured")
		return dispatch.NewLog(log, env == envLocal)
	}

	return dispatch.NewHTTP(cfg, m)
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
