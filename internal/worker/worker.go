package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/runner"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultConcurrency  = 1
	defaultPrefetch     = 5
)

// Worker забирает QUEUED анализы и передаёт их runner.Runner.
type Worker struct {
	analyses repo.AnalysisStore
	runner   *runner.Runner
	conn     *mq.Connection
	logger   *slog.Logger

	pollInterval time.Duration
	batchSize    int
	concurrency  int

	consumer *mq.Consumer
	cancel   context.CancelFunc
	wg       conc.WaitGroup
	stopOnce sync.Once
	stopped  atomic.Bool
}

// Config — параметры Worker.
type Config struct {
	Analyses repo.AnalysisStore
	Runner   *runner.Runner

	// Conn — соединение с RabbitMQ. nil — только polling.
	Conn *mq.Connection

	PollInterval time.Duration // default: 10s
	BatchSize    int           // анализов за один poll, default: 50

	// Concurrency — сколько анализов из одного poll выполняются параллельно (default: 1).
	Concurrency int

	Logger *slog.Logger
}

// New создаёт Worker. Нулевые значения Config заменяются значениями по умолчанию.
func New(cfg Config) *Worker {
	w := &Worker{
		analyses:     cfg.Analyses,
		runner:       cfg.Runner,
		conn:         cfg.Conn,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		concurrency:  cfg.Concurrency,
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.concurrency <= 0 {
		w.concurrency = defaultConcurrency
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Start запускает consumer analyses.requested (если есть соединение)
// и цикл polling. Не блокируется.
func (w *Worker) Start(ctx context.Context) error {
	if w.stopped.Load() {
		return errors.New("worker already stopped")
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"concurrency", w.concurrency,
		"consumer", w.conn != nil,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueAnalysesRequested,
			Tag:      consumerTag(),
			Handler:  w.handleAnalysisRequested,
			Prefetch: defaultPrefetch,
		})
		w.wg.Go(func() {
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("analysis consumer stopped", "error", err)
			}
		})
	}

	w.wg.Go(func() { w.pollLoop(ctx) })
	return nil
}

// Stop отменяет работу и ждёт, пока текущие анализы завершатся.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		w.logger.Info("stopping worker")

		if w.consumer != nil {
			w.consumer.Stop()
		}
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()

		w.logger.Info("worker stopped")
	})
}

// IsStopped сообщает, был ли вызван Stop.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}

// consumerTag — tag вида critpath-worker@<host>-<pid> для консоли RabbitMQ.
func consumerTag() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("critpath-worker@%s-%d", host, os.Getpid())
}

// pollLoop забирает анализы сразу при старте, затем раз в pollInterval.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll выполняет одну пачку QUEUED анализов не более чем в concurrency горутинах.
// Go блокируется, пока все горутины пула заняты.
func (w *Worker) poll(ctx context.Context) {
	queued, err := w.analyses.ListQueued(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to list queued analyses", "error", err)
		}
		return
	}
	if len(queued) == 0 {
		return
	}

	w.logger.Debug("poll found queued analyses", "count", len(queued))

	batch := pool.New().WithMaxGoroutines(w.concurrency)
	for _, a := range queued {
		if ctx.Err() != nil {
			break
		}
		batch.Go(func() {
			if err := w.process(ctx, a.ID); err != nil {
				w.logger.Error("polled analysis failed", "analysis_id", a.ID, "project_id", a.ProjectID, "error", err)
			}
		})
	}
	batch.Wait()
}
