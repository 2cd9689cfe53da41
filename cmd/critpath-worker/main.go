// Critpath Worker — выполняет поставленные в очередь CPM-анализы.
//
// Worker:
//   - Получает analysis.requested из RabbitMQ
//   - Периодически забирает QUEUED анализы из БД (если брокер недоступен)
//   - Сохраняет результат и публикует analysis.completed
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/runner"
	"github.com/shaiso/Critpath/internal/telemetry"
	"github.com/shaiso/Critpath/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("critpath-worker")
	logger.Info("starting critpath-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	analysisRepo := repo.NewAnalysisRepo(pool)
	runnerCfg := runner.Config{Analyses: analysisRepo, Logger: logger}

	// RabbitMQ
	var mqConn *mq.Connection
	mqConn, err = mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		runnerCfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	// Создаём worker
	w := worker.New(worker.Config{
		Analyses:    analysisRepo,
		Runner:      runner.New(runnerCfg),
		Conn:        mqConn,
		Concurrency: envInt("WORKER_CONCURRENCY", 1),
		Logger:      logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		broker := "disabled"
		if mqConn != nil {
			broker = "down"
			if mqConn.Connected() {
				broker = "up"
			}
		}
		fmt.Fprintf(w, "ok broker=%s", broker)
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("critpath-worker stopped")
}

// envInt читает положительное целое из переменной окружения.
func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
