// Critpath Scheduler — плановые снимки (baseline) проектов.
//
// Несколько экземпляров могут работать одновременно: тик выполняет
// только лидер, удерживающий pg_advisory_lock.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/scheduler"
	"github.com/shaiso/Critpath/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger("critpath-scheduler")
	logger.Info("starting critpath-scheduler")

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

	cfg := scheduler.Config{
		Projects: repo.NewProjectRepo(pool),
		Analyses: repo.NewAnalysisRepo(pool),
		Logger:   logger,
	}

	// RabbitMQ (опционально: без него воркеры найдут анализы через polling)
	if mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger); err != nil {
		logger.Warn("RabbitMQ not available, snapshots rely on worker polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(cfg)

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go runLoop(ctx, pool, sched, logger)

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("critpath-scheduler stopped")
}

// runLoop раз в секунду пытается стать лидером и выполняет тик.
//
// Advisory lock принадлежит сессии, поэтому он берётся на выделенном
// соединении, которое удерживается до выхода.
func runLoop(ctx context.Context, pool *pgxpool.Pool, sched *scheduler.Scheduler, logger *slog.Logger) {
	tk := time.NewTicker(1 * time.Second)
	defer tk.Stop()

	var lockConn *pgxpool.Conn
	defer func() {
		if lockConn != nil {
			_, _ = lockConn.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
			lockConn.Release()
		}
	}()

	for {
		select {
		case <-tk.C:
			// пытаемся стать лидером
			if lockConn == nil {
				conn, err := pool.Acquire(ctx)
				if err != nil {
					logger.Warn("acquire lock connection", "error", err)
					continue
				}

				var ok bool
				if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
					conn.Release()
					logger.Warn("advisory lock", "error", err)
					continue
				}
				if !ok {
					// не лидер — пропускаем тик
					conn.Release()
					continue
				}

				lockConn = conn
				logger.Info("acquired scheduler leadership")
			}

			if err := sched.Tick(ctx); err != nil {
				logger.Error("scheduler tick failed", "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}
