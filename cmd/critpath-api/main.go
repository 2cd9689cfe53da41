// Critpath API — HTTP API для CPM-анализа.
//
// Хранилище выбирается через STORAGE: postgres (по умолчанию) или memory.
// Если RabbitMQ доступен, анализы проектов ставятся в очередь для воркеров;
// иначе выполняются синхронно в процессе API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Critpath/internal/api"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/runner"
	"github.com/shaiso/Critpath/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("critpath-api")
	logger.Info("starting critpath-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище
	projects, analyses, closeStore, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	cfg := api.Config{
		Projects: projects,
		Analyses: analyses,
		MaxTasks: maxTasks(logger),
		Logger:   logger,
	}
	runnerCfg := runner.Config{Analyses: analyses, Logger: logger}

	// RabbitMQ (опционально)
	if mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger); err != nil {
		logger.Warn("RabbitMQ not available, analyses run inline", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher := mq.NewPublisher(mqConn, logger)
		cfg.Publisher = publisher
		runnerCfg.Publisher = publisher
	}

	cfg.Runner = runner.New(runnerCfg)
	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// openStore открывает хранилище по STORAGE.
func openStore(ctx context.Context, logger *slog.Logger) (repo.ProjectStore, repo.AnalysisStore, func(), error) {
	switch storage := os.Getenv("STORAGE"); storage {
	case "memory":
		logger.Info("using in-memory storage")
		store := repo.NewMemoryStore()
		return store.Projects, store.Analyses, func() {}, nil

	case "", "postgres":
		pool, err := repo.NewPool(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("connected to database")
		return repo.NewProjectRepo(pool), repo.NewAnalysisRepo(pool), pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORAGE %q (expected postgres or memory)", storage)
	}
}

// maxTasks читает MAX_TASKS.
func maxTasks(logger *slog.Logger) int {
	v := os.Getenv("MAX_TASKS")
	if v == "" {
		return api.DefaultMaxTasks
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid MAX_TASKS, using default", "value", v, "default", api.DefaultMaxTasks)
		return api.DefaultMaxTasks
	}
	return n
}
