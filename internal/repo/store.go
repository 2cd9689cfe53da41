package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
)

// ProjectStore — хранилище проектов.
type ProjectStore interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListDueSnapshots возвращает проекты, у которых наступило время снимка.
	ListDueSnapshots(ctx context.Context, now time.Time, limit int) ([]domain.Project, error)
}

// AnalysisStore — хранилище анализов.
type AnalysisStore interface {
	// Create возвращает ErrAlreadyExists, если ключ идемпотентности уже занят в проекте.
	Create(ctx context.Context, analysis *domain.Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error)
	GetByIdempotencyKey(ctx context.Context, projectID uuid.UUID, key string) (*domain.Analysis, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, filter AnalysisFilter) ([]domain.Analysis, error)
	ListQueued(ctx context.Context, limit int) ([]domain.Analysis, error)

	// Claim атомарно переводит анализ из QUEUED в RUNNING.
	// ErrNotFound — анализа нет, ErrInvalidState — он не в QUEUED.
	Claim(ctx context.Context, id uuid.UUID) (*domain.Analysis, error)

	Update(ctx context.Context, analysis *domain.Analysis) error
}

// ProjectFilter — параметры выборки проектов.
type ProjectFilter struct {
	Limit  int
	Offset int
}

// AnalysisFilter — параметры выборки анализов проекта.
type AnalysisFilter struct {
	Status domain.AnalysisStatus
	Limit  int
	Offset int
}

// rowScanner — общий интерфейс pgx.Row и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// limitOrDefault подставляет лимит по умолчанию.
func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
