package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broadcast-recorder/internal/platform/config"
	"broadcast-recorder/internal/platform/logger"
	"broadcast-recorder/internal/platform/metrics"
	"broadcast-recorder/internal/recorder"
	"broadcast-recorder/internal/runner"
	"broadcast-recorder/internal/schedule"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 30 * time.Second
)

func main() {
	_ = config.Load()

	host := config.GetEnv("HOST", "0.0.0.0")
	port := config.GetEnv("PORT", "31000")
	scheduleURL := config.GetEnv("SCHEDULE_URL", "http://localhost:35000")
	window := config.GetEnvDuration("RECORDING_WINDOW", recorder.DefaultWindow)
	timeout := config.GetEnvDuration("RECORDING_TIMEOUT", recorder.DefaultTimeout)
	poolSpec := config.GetEnv("PORT_POOL", "41000-41009")
	redisAddr := config.GetEnv("REDIS_ADDR", "")
	lockFile := config.GetEnv("LOCK_FILE", "")
	recordingsDir := config.GetEnv("RECORDINGS_DIR", "recordings")
	ffmpegBin := config.GetEnv("FFMPEG_BIN", "ffmpeg")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	candidates, err := config.ParsePortPool(poolSpec)
	if err != nil {
		log.Error("invalid PORT_POOL", "error", err)
		os.Exit(1)
	}

	// Shared state backend: Redis when configured (required for multiple
	// replicas), otherwise in-memory with an optional file lock.
	var lock recorder.Lock = recorder.NewMemoryLock()
	var store recorder.UsedPortStore = recorder.NewMemoryUsedPortStore()
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.GetEnv("REDIS_PASSWORD", ""),
			DB:       config.GetEnvInt("REDIS_DB", 0),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Error("redis connection failed", "addr", redisAddr, "error", err)
			os.Exit(1)
		}
		store = recorder.NewRedisUsedPortStore(client, "recorder:ports:used")
		lock = recorder.NewRedisLock(client, "recorder:ports:lock")
		log.Info("using redis port state", "addr", redisAddr)
	} else if lockFile != "" {
		lock = recorder.NewFlockLock(lockFile)
		log.Info("using file lock", "path", lockFile)
	}

	ports := recorder.NewPortPool(candidates, lock, store)
	schedules := schedule.New(scheduleURL)
	captures := runner.New(runner.Config{Binary: ffmpegBin, Directory: recordingsDir}, log)
	met := metrics.New()

	svc := recorder.NewService(schedules, captures, ports, recorder.Options{
		Host:    host,
		Window:  window,
		Timeout: timeout,
		Logger:  log,
		Metrics: met,
	})
	h := recorder.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			if n, err := ports.InUse(req.Context()); err == nil {
				met.SetUsedPorts(n)
			}
		}).ServeHTTP(w, req)
	})
	r.Get("/ping", h.Ping)
	r.Post("/record", h.Record)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"schedule_url", scheduleURL,
		"port_pool", poolSpec,
		"window", window.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	// Wait for running captures so their ports are freed, not leaked.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
	defer cancelDrain()

	if err := svc.Drain(drainCtx); err != nil {
		log.Warn("captures still running at shutdown, ports may stay allocated", "error", err)
	}

	log.Info("server stopped")
}
