package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/engine"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/telemetry"
)

// Publisher — публикация событий о завершении анализа.
type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, payload mq.AnalysisCompletedPayload) error
}

// Runner выполняет поставленные в очередь анализы.
//
// Используется воркером (из очереди и polling) и API
// в режиме без брокера.
type Runner struct {
	analyses  repo.AnalysisStore
	publisher Publisher
	logger    *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	Analyses repo.AnalysisStore

	// Publisher — опционально; без него analysis.completed не публикуется.
	Publisher Publisher

	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		analyses:  cfg.Analyses,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}

// Execute захватывает анализ, считает расписание и сохраняет результат.
//
// Ошибки входных данных (валидация, цикл) — нормальный исход: анализ
// сохраняется в FAILED, и Execute возвращает его без ошибки.
// ErrAnalysisNotFound и ErrAnalysisNotQueued означают, что анализ
// выполнять не нужно.
func (r *Runner) Execute(ctx context.Context, analysisID uuid.UUID) (*domain.Analysis, error) {
	// 1. Захватываем анализ: QUEUED → RUNNING
	analysis, err := r.analyses.Claim(ctx, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, analysisID)
		case errors.Is(err, repo.ErrInvalidState):
			return nil, fmt.Errorf("%w: %s", ErrAnalysisNotQueued, analysisID)
		default:
			return nil, fmt.Errorf("claim analysis: %w", err)
		}
	}

	logger := telemetry.WithAnalysisID(
		telemetry.WithProjectID(r.logger, analysis.ProjectID.String()),
		analysis.ID.String(),
	)
	logger.Info("analysis started", "tasks", analysis.TaskCount, "trigger", analysis.Trigger)

	// 2. Считаем расписание на собственной копии задач
	result, err := Analyze(domain.CloneTaskRecords(analysis.Tasks))

	// 3. Сохраняем исход
	if err != nil {
		kind := engine.Classify(err)
		if kind == "" {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		analysis.MarkFailed(kind, err.Error())
		logger.Warn("analysis failed", "kind", kind, "error", err.Error())
	} else {
		analysis.MarkSucceeded(result)
		logger.Info("analysis succeeded",
			"project_duration", result.ProjectDuration,
			"critical_path", result.CriticalPath(),
			"elapsed", analysis.Duration(),
		)
	}

	if err := r.analyses.Update(ctx, analysis); err != nil {
		return nil, fmt.Errorf("update analysis: %w", err)
	}

	// 4. Уведомляем подписчиков
	r.publishCompletion(ctx, analysis)

	return analysis, nil
}

// publishCompletion публикует событие analysis.completed.
// Ошибка публикации не влияет на исход: результат уже сохранён.
func (r *Runner) publishCompletion(ctx context.Context, analysis *domain.Analysis) {
	if r.publisher == nil {
		return
	}

	payload := mq.AnalysisCompletedPayload{
		AnalysisID: analysis.ID,
		ProjectID:  analysis.ProjectID,
		Status:     string(analysis.Status),
		ErrorKind:  analysis.ErrorKind,
		Error:      analysis.Error,
	}
	if analysis.Result != nil {
		payload.ProjectDuration = analysis.Result.ProjectDuration
		payload.CriticalPath = analysis.Result.CriticalPath()
	}

	if err := r.publisher.PublishAnalysisCompleted(ctx, payload); err != nil {
		r.logger.Warn("failed to publish analysis.completed",
			"analysis_id", analysis.ID,
			"error", err,
		)
	}
}

// Analyze выполняет engine.Analyze и записывает метрики анализа.
func Analyze(records []domain.TaskRecord) (*domain.Result, error) {
	start := time.Now()
	result, err := engine.Analyze(records)
	telemetry.ObserveAnalysis(
		telemetry.AnalysisOutcome(engine.Classify(err), err),
		len(records),
		time.Since(start),
	)
	return result, err
}
