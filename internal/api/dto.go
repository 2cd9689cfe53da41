package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
)

// Analyze DTOs

// AnalyzeRequest — запрос на расчёт расписания.
// Tasks не типизирован: форму списка проверяет движок.
type AnalyzeRequest struct {
	Tasks any `json:"tasks"`
}

// Project DTOs

// CreateProjectRequest — запрос на создание проекта.
type CreateProjectRequest struct {
	Name         string `json:"name"`
	Tasks        any    `json:"tasks,omitempty"`
	SnapshotCron string `json:"snapshot_cron,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// UpdateProjectRequest — запрос на обновление проекта.
type UpdateProjectRequest struct {
	Name *string `json:"name,omitempty"`
}

// SetTasksRequest — запрос на замену списка задач.
type SetTasksRequest struct {
	Tasks any `json:"tasks"`
}

// SetSnapshotsRequest — запрос на настройку плановых снимков.
// Пустой Cron выключает снимки.
type SetSnapshotsRequest struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone,omitempty"`
}

// ProjectResponse — ответ с проектом.
type ProjectResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	TaskCount      int        `json:"task_count"`
	SnapshotCron   string     `json:"snapshot_cron,omitempty"`
	Timezone       string     `json:"timezone"`
	NextSnapshotAt *time.Time `json:"next_snapshot_at,omitempty"`
	LastSnapshotAt *time.Time `json:"last_snapshot_at,omitempty"`
	LastAnalysisID *uuid.UUID `json:"last_analysis_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ProjectFromDomain конвертирует domain.Project в ProjectResponse.
func ProjectFromDomain(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Name:           p.Name,
		TaskCount:      len(p.Tasks),
		SnapshotCron:   p.SnapshotCron,
		Timezone:       p.Timezone,
		NextSnapshotAt: p.NextSnapshotAt,
		LastSnapshotAt: p.LastSnapshotAt,
		LastAnalysisID: p.LastAnalysisID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Analysis DTOs

// CreateAnalysisRequest — запрос на постановку анализа в очередь.
type CreateAnalysisRequest struct {
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// AnalysisResponse — ответ с анализом.
type AnalysisResponse struct {
	ID             uuid.UUID      `json:"id"`
	ProjectID      uuid.UUID      `json:"project_id"`
	Status         string         `json:"status"`
	Trigger        string         `json:"trigger"`
	TaskCount      int            `json:"task_count"`
	Result         *domain.Result `json:"result,omitempty"`
	ErrorKind      string         `json:"error_kind,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}

// AnalysisFromDomain конвертирует domain.Analysis в AnalysisResponse.
func AnalysisFromDomain(a domain.Analysis) AnalysisResponse {
	return AnalysisResponse{
		ID:             a.ID,
		ProjectID:      a.ProjectID,
		Status:         string(a.Status),
		Trigger:        string(a.Trigger),
		TaskCount:      a.TaskCount,
		Result:         a.Result,
		ErrorKind:      a.ErrorKind,
		Error:          a.Error,
		IdempotencyKey: a.IdempotencyKey,
		CreatedAt:      a.CreatedAt,
		StartedAt:      a.StartedAt,
		FinishedAt:     a.FinishedAt,
	}
}
