// Package main - точка входа фонового процесса (Worker) менеджера очередей.
//
// Worker отвечает за периодические задачи:
// - Переходы жизненного цикла событий (уведомление, формирование, удаление)
// - Ежедневное автосоздание событий из внешнего расписания
// - Сверка индексов событий в группах
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/queue-hub/queue-manager/config"
	appservice "github.com/queue-hub/queue-manager/internal/application/service"
	"github.com/queue-hub/queue-manager/internal/domain/event"
	"github.com/queue-hub/queue-manager/internal/domain/user"
	"github.com/queue-hub/queue-manager/internal/infrastructure/persistence/postgres"
	"github.com/queue-hub/queue-manager/internal/infrastructure/persistence/redis"
	"github.com/queue-hub/queue-manager/internal/infrastructure/scheduler"
	"github.com/queue-hub/queue-manager/internal/infrastructure/scheduler/jobs"
	infraservice "github.com/queue-hub/queue-manager/internal/infrastructure/service"
	"github.com/queue-hub/queue-manager/pkg/metrics"
	"github.com/queue-hub/queue-manager/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting queue manager worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	if cfg.Database.URL != "" {
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		pgCfg := postgres.DefaultConfig()
		pgCfg.MaxConns = int32(cfg.Database.MaxConns)
		pgCfg.MinConns = int32(cfg.Database.MinConns)
		dbConn, err = postgres.NewConnection(ctx, pgCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)

	// Нотификатор ходит за составом группы через кеш, если Redis доступен.
	var membership user.GroupMembership = userRepo
	var fairnessMirror user.FairnessStore

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer redisCache.Close()
			membership = redis.NewMembershipCache(redisCache, userRepo)
			fairnessMirror = redis.NewFairnessCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. МЕТРИКИ
	// ─────────────────────────────────────────────────────────────────────────
	m := metrics.New("queue_manager")

	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))

		metricsSrv := &http.Server{
			Addr:              cfg.Observability.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics server listening", "addr", cfg.Observability.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. СЕРВИСЫ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing services...")

	uowFactory := postgres.NewUnitOfWorkFactory(dbConn)
	eventRepo := postgres.NewEventRepository(dbConn)

	offsets := event.TimeOffsets{
		Notification: cfg.Lifecycle.NotificationOffset,
		Formation:    cfg.Lifecycle.FormationOffset,
		Deletion:     cfg.Lifecycle.DeletionOffset,
	}

	notifier := infraservice.NewGroupNotifier(membership, infraservice.NewLogChannel(log), log)

	lifecycle := appservice.NewLifecycleService(
		uowFactory, eventRepo, notifier, log, m,
		appservice.LifecycleConfig{MaxConcurrent: cfg.Lifecycle.MaxConcurrentTransitions},
	)
	if fairnessMirror != nil {
		lifecycle.WithFairnessMirror(fairnessMirror)
	}

	scheduleSource := infraservice.NewFileScheduleSource(cfg.Schedule.FilePath)
	feeder := appservice.NewAutoCreateService(uowFactory, scheduleSource, offsets, log, m)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler is disabled, worker will idle")
		waitForShutdown(log)
		return nil
	}

	clock := timeutil.RealClock{}

	sched := scheduler.New(scheduler.Config{
		Logger:       log,
		Clock:        clock,
		PollInterval: cfg.Scheduler.PollInterval,
	})
	sched.OnJobComplete(func(result scheduler.JobResult) {
		m.RecordJobRun(result.JobName, result.Success, result.Duration)
	})

	registrations := []struct {
		job      scheduler.Job
		schedule scheduler.Schedule
	}{
		{
			job:      jobs.NewTransitionsJob(lifecycle, clock, log),
			schedule: scheduler.NewIntervalSchedule(cfg.Scheduler.TransitionsInterval),
		},
		{
			job:      jobs.NewAutoCreateJob(feeder, clock, log),
			schedule: scheduler.NewDailySchedule(cfg.Scheduler.AutoCreateHour, cfg.Scheduler.AutoCreateMinute, timeutil.AlmatyTZ),
		},
		{
			job:      jobs.NewCleanupJob(uowFactory, log),
			schedule: scheduler.NewIntervalSchedule(cfg.Scheduler.CleanupInterval),
		},
	}
	for _, reg := range registrations {
		if err := sched.Register(reg.job, reg.schedule); err != nil {
			return fmt.Errorf("failed to register job %s: %w", reg.job.Name(), err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("scheduler started", "jobs", len(registrations))

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	waitForShutdown(log)

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// waitForShutdown блокируется до сигнала завершения.
func waitForShutdown(log *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
