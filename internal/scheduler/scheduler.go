package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
)

// Publisher — публикация analysis.requested.
type Publisher interface {
	PublishAnalysisRequested(ctx context.Context, payload mq.AnalysisRequestedPayload) error
}

// Scheduler — планировщик плановых снимков (baseline) проектов.
type Scheduler struct {
	projects  repo.ProjectStore
	analyses  repo.AnalysisStore
	publisher Publisher
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	Projects  repo.ProjectStore
	Analyses  repo.AnalysisStore
	Publisher Publisher // опционально
	Logger    *slog.Logger
	BatchSize int // количество проектов за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		projects:  cfg.Projects,
		analyses:  cfg.Analyses,
		publisher: cfg.Publisher,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит проекты с наступившим next_snapshot_at
// 2. Для каждого создаёт анализ со снимком текущих задач
// 3. Сдвигает next_snapshot_at по cron-выражению
// 4. Публикует analysis.requested
//
// Ошибки одного проекта не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	return s.tick(ctx, time.Now())
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) error {
	projects, err := s.projects.ListDueSnapshots(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due projects: %w", err)
	}

	if len(projects) == 0 {
		return nil
	}

	s.logger.Debug("found due snapshots", "count", len(projects))

	var processed, created int
	for i := range projects {
		project := &projects[i]

		analysisCreated, err := s.processProject(ctx, project, now)
		if err != nil {
			s.logger.Error("failed to process snapshot",
				"project_id", project.ID,
				"project_name", project.Name,
				"error", err,
			)
			continue
		}

		processed++
		if analysisCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(projects),
		"processed", processed,
		"analyses_created", created,
	)

	return nil
}

// processProject делает снимок одного проекта.
// Возвращает true, если анализ был создан (не был дубликатом).
func (s *Scheduler) processProject(ctx context.Context, project *domain.Project, now time.Time) (bool, error) {
	// 1. Следующее время снимка. Невалидное расписание выключается,
	// иначе проект попадал бы в выборку на каждом тике.
	next, err := CalculateNextSnapshot(project.SnapshotCron, project.Timezone, now)
	if err != nil {
		s.logger.Error("invalid snapshot schedule, disabling",
			"project_id", project.ID,
			"cron", project.SnapshotCron,
			"error", err,
		)
		project.DisableSnapshots()
		if err := s.projects.Update(ctx, project); err != nil {
			return false, fmt.Errorf("disable snapshots: %w", err)
		}
		return false, nil
	}

	// 2. Пустой проект — сдвигаем время без анализа
	if len(project.Tasks) == 0 {
		s.logger.Debug("project has no tasks, skipping snapshot", "project_id", project.ID)
		project.NextSnapshotAt = &next
		project.UpdatedAt = now
		if err := s.projects.Update(ctx, project); err != nil {
			return false, fmt.Errorf("update project: %w", err)
		}
		return false, nil
	}

	// 3. Ключ идемпотентности: "{project_id}_{next_snapshot_unix}".
	// Для одного проекта и конкретного времени создаётся один анализ.
	idempKey := fmt.Sprintf("%s_%d", project.ID, project.NextSnapshotAt.Unix())

	analysisID, analysisCreated, err := s.ensureAnalysis(ctx, project, idempKey)
	if err != nil {
		return false, err
	}

	// 4. Обновляем проект
	project.RecordSnapshot(analysisID, next)
	if err := s.projects.Update(ctx, project); err != nil {
		return analysisCreated, fmt.Errorf("update project: %w", err)
	}

	// 5. Публикуем событие (если publisher настроен и анализ создан)
	if s.publisher != nil && analysisCreated {
		payload := mq.AnalysisRequestedPayload{AnalysisID: analysisID, ProjectID: project.ID}
		if err := s.publisher.PublishAnalysisRequested(ctx, payload); err != nil {
			// Не фатально: воркер заберёт анализ через polling
			s.logger.Warn("failed to publish analysis.requested",
				"analysis_id", analysisID,
				"error", err,
			)
		}
	}

	return analysisCreated, nil
}

// ensureAnalysis возвращает анализ для ключа идемпотентности, создавая его при необходимости.
func (s *Scheduler) ensureAnalysis(ctx context.Context, project *domain.Project, idempKey string) (uuid.UUID, bool, error) {
	existing, err := s.analyses.GetByIdempotencyKey(ctx, project.ID, idempKey)
	if err == nil {
		s.logger.Debug("snapshot analysis already exists (idempotency)",
			"project_id", project.ID,
			"analysis_id", existing.ID,
			"idempotency_key", idempKey,
		)
		return existing.ID, false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("check idempotency: %w", err)
	}

	analysis := domain.NewAnalysis(project, domain.AnalysisTriggerSchedule)
	analysis.IdempotencyKey = idempKey

	if err := s.analyses.Create(ctx, analysis); err != nil {
		return uuid.Nil, false, fmt.Errorf("create analysis: %w", err)
	}

	s.logger.Info("created snapshot analysis",
		"analysis_id", analysis.ID,
		"project_id", project.ID,
		"project_name", project.Name,
		"tasks", analysis.TaskCount,
	)

	return analysis.ID, true, nil
}
