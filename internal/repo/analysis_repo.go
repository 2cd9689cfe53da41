package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Critpath/internal/domain"
)

const analysisColumns = `
	id, project_id, status, trigger, tasks, task_count, result, error_kind,
	error, idempotency_key, created_at, started_at, finished_at`

// AnalysisRepo — репозиторий анализов в PostgreSQL.
type AnalysisRepo struct {
	pool *pgxpool.Pool
}

// NewAnalysisRepo создаёт новый AnalysisRepo.
func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

// Create создаёт новый анализ.
func (r *AnalysisRepo) Create(ctx context.Context, analysis *domain.Analysis) error {
	tasksJSON, err := marshalTasks(analysis.Tasks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO analyses (id, project_id, status, trigger, tasks, task_count,
		                      idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		analysis.ID,
		analysis.ProjectID,
		analysis.Status,
		analysis.Trigger,
		tasksJSON,
		analysis.TaskCount,
		nullString(analysis.IdempotencyKey),
		analysis.CreatedAt,
	)
	return translate("insert analysis", err)
}

// GetByID возвращает анализ по ID.
func (r *AnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Analysis, error) {
	query := `SELECT` + analysisColumns + ` FROM analyses WHERE id = $1`
	return scanAnalysis(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает анализ по ключу идемпотентности.
func (r *AnalysisRepo) GetByIdempotencyKey(ctx context.Context, projectID uuid.UUID, key string) (*domain.Analysis, error) {
	query := `SELECT` + analysisColumns + `
		FROM analyses
		WHERE project_id = $1 AND idempotency_key = $2
	`
	return scanAnalysis(r.pool.QueryRow(ctx, query, projectID, key))
}

// ListByProject возвращает анализы проекта, новые первыми.
func (r *AnalysisRepo) ListByProject(ctx context.Context, projectID uuid.UUID, filter AnalysisFilter) ([]domain.Analysis, error) {
	query := `SELECT` + analysisColumns + `
		FROM analyses
		WHERE project_id = $1
		  AND ($2::text IS NULL OR status = $2::analysis_status)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		projectID,
		nullString(string(filter.Status)),
		limitOrDefault(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return collectAnalyses(rows)
}

// ListQueued возвращает анализы в статусе QUEUED, старые первыми.
func (r *AnalysisRepo) ListQueued(ctx context.Context, limit int) ([]domain.Analysis, error) {
	query := `SELECT` + analysisColumns + `
		FROM analyses
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list queued analyses: %w", err)
	}
	return collectAnalyses(rows)
}

// Claim атомарно переводит анализ из QUEUED в RUNNING.
// Из нескольких воркеров анализ получит ровно один.
func (r *AnalysisRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.Analysis, error) {
	query := `
		UPDATE analyses
		SET status = 'RUNNING', started_at = $2
		WHERE id = $1 AND status = 'QUEUED'
		RETURNING` + analysisColumns

	analysis, err := scanAnalysis(r.pool.QueryRow(ctx, query, id, time.Now()))
	if errors.Is(err, ErrNotFound) {
		// Строки нет или статус не QUEUED — различаем по повторному чтению
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInvalidState
	}
	return analysis, err
}

// Update обновляет статус, результат и ошибку анализа.
func (r *AnalysisRepo) Update(ctx context.Context, analysis *domain.Analysis) error {
	var resultJSON []byte
	if analysis.Result != nil {
		data, err := json.Marshal(analysis.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = data
	}

	query := `
		UPDATE analyses
		SET status = $2, result = $3, error_kind = $4, error = $5,
		    started_at = $6, finished_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		analysis.ID,
		analysis.Status,
		resultJSON,
		nullString(analysis.ErrorKind),
		nullString(analysis.Error),
		analysis.StartedAt,
		analysis.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func collectAnalyses(rows pgx.Rows) ([]domain.Analysis, error) {
	defer rows.Close()

	analyses := make([]domain.Analysis, 0)
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *analysis)
	}
	return analyses, rows.Err()
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var tasksJSON, resultJSON []byte
	var errorKind, analysisError, idempotencyKey *string

	err := row.Scan(
		&a.ID,
		&a.ProjectID,
		&a.Status,
		&a.Trigger,
		&tasksJSON,
		&a.TaskCount,
		&resultJSON,
		&errorKind,
		&analysisError,
		&idempotencyKey,
		&a.CreatedAt,
		&a.StartedAt,
		&a.FinishedAt,
	)
	if err != nil {
		return nil, translate("scan analysis", err)
	}

	if a.Tasks, err = unmarshalTasks(tasksJSON); err != nil {
		return nil, err
	}
	if resultJSON != nil {
		a.Result = &domain.Result{}
		if err := json.Unmarshal(resultJSON, a.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if errorKind != nil {
		a.ErrorKind = *errorKind
	}
	if analysisError != nil {
		a.Error = *analysisError
	}
	if idempotencyKey != nil {
		a.IdempotencyKey = *idempotencyKey
	}

	return &a, nil
}
