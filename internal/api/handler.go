package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
)

// DefaultMaxTasks — ограничение на размер списка задач по умолчанию.
const DefaultMaxTasks = 5000

// Publisher — публикация analysis.requested.
type Publisher interface {
	PublishAnalysisRequested(ctx context.Context, payload mq.AnalysisRequestedPayload) error
}

// Executor выполняет поставленный в очередь анализ (runner.Runner).
type Executor interface {
	Execute(ctx context.Context, analysisID uuid.UUID) (*domain.Analysis, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	projects  repo.ProjectStore
	analyses  repo.AnalysisStore
	publisher Publisher
	runner    Executor
	state     *TaskListState
	maxTasks  int
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Projects repo.ProjectStore
	Analyses repo.AnalysisStore

	// Publisher — опционально. Без брокера анализы выполняются
	// синхронно через Runner.
	Publisher Publisher
	Runner    Executor

	MaxTasks int // default: DefaultMaxTasks
	Logger   *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		projects:  cfg.Projects,
		analyses:  cfg.Analyses,
		publisher: cfg.Publisher,
		runner:    cfg.Runner,
		state:     NewTaskListState(),
		maxTasks:  maxTasks,
		logger:    logger,
	}
}
