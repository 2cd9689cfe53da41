package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Critpath/internal/domain"
)

const projectColumns = `
	id, name, tasks, snapshot_cron, timezone, next_snapshot_at,
	last_snapshot_at, last_analysis_id, created_at, updated_at`

// ProjectRepo — репозиторий проектов в PostgreSQL.
type ProjectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepo создаёт новый ProjectRepo.
func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

// Create создаёт новый проект.
func (r *ProjectRepo) Create(ctx context.Context, project *domain.Project) error {
	tasksJSON, err := marshalTasks(project.Tasks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO projects (id, name, tasks, snapshot_cron, timezone, next_snapshot_at,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		project.ID,
		project.Name,
		tasksJSON,
		nullString(project.SnapshotCron),
		project.Timezone,
		project.NextSnapshotAt,
		project.CreatedAt,
		project.UpdatedAt,
	)
	return translate("insert project", err)
}

// GetByID возвращает проект по ID.
func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

// List возвращает проекты, новые первыми.
func (r *ProjectRepo) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	query := `SELECT` + projectColumns + `
		FROM projects
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limitOrDefault(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return collectProjects(rows)
}

// ListDueSnapshots возвращает проекты с наступившим временем снимка.
func (r *ProjectRepo) ListDueSnapshots(ctx context.Context, now time.Time, limit int) ([]domain.Project, error) {
	query := `SELECT` + projectColumns + `
		FROM projects
		WHERE snapshot_cron IS NOT NULL
		  AND next_snapshot_at IS NOT NULL
		  AND next_snapshot_at <= $1
		ORDER BY next_snapshot_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("list due projects: %w", err)
	}
	return collectProjects(rows)
}

// Update обновляет проект.
func (r *ProjectRepo) Update(ctx context.Context, project *domain.Project) error {
	tasksJSON, err := marshalTasks(project.Tasks)
	if err != nil {
		return err
	}

	query := `
		UPDATE projects
		SET name = $2, tasks = $3, snapshot_cron = $4, timezone = $5,
		    next_snapshot_at = $6, last_snapshot_at = $7, last_analysis_id = $8,
		    updated_at = $9
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		project.ID,
		project.Name,
		tasksJSON,
		nullString(project.SnapshotCron),
		project.Timezone,
		project.NextSnapshotAt,
		project.LastSnapshotAt,
		project.LastAnalysisID,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет проект вместе с его анализами.
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var tasksJSON []byte
	var snapshotCron *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&tasksJSON,
		&snapshotCron,
		&p.Timezone,
		&p.NextSnapshotAt,
		&p.LastSnapshotAt,
		&p.LastAnalysisID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, translate("scan project", err)
	}

	if snapshotCron != nil {
		p.SnapshotCron = *snapshotCron
	}
	if p.Tasks, err = unmarshalTasks(tasksJSON); err != nil {
		return nil, err
	}

	return &p, nil
}

func marshalTasks(tasks []domain.TaskRecord) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.TaskRecord{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return data, nil
}

func unmarshalTasks(data []byte) ([]domain.TaskRecord, error) {
	tasks := make([]domain.TaskRecord, 0)
	if data == nil {
		return tasks, nil
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	return tasks, nil
}
