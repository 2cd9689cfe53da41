package domain

import (
	"time"

	"github.com/google/uuid"
)

// Analysis — запись об одном CPM-анализе проекта.
//
// Analysis создаётся когда:
// - Пользователь запрашивает анализ проекта (через API/CLI)
// - Scheduler делает плановый снимок
//
// Каждый анализ хранит собственную копию списка задач: изменения проекта
// после постановки в очередь не влияют на результат.
type Analysis struct {
	// ID — уникальный идентификатор анализа.
	ID uuid.UUID `json:"id"`

	// ProjectID — проект, для которого выполняется анализ.
	ProjectID uuid.UUID `json:"project_id"`

	// Status — текущий статус.
	Status AnalysisStatus `json:"status"`

	// Trigger — кто запросил анализ.
	Trigger AnalysisTrigger `json:"trigger"`

	// Tasks — копия списка задач на момент постановки в очередь.
	Tasks []TaskRecord `json:"tasks"`

	// TaskCount — количество задач во входных данных.
	TaskCount int `json:"task_count"`

	// Result — расписание; заполняется при SUCCEEDED.
	Result *Result `json:"result,omitempty"`

	// ErrorKind — вид ошибки при FAILED: "validation" или "cycle".
	ErrorKind string `json:"error_kind,omitempty"`

	// Error — текст ошибки при FAILED.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности.
	// Для плановых снимков: "{project_id}_{next_snapshot_unix}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// CreatedAt — время постановки в очередь.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt — время захвата воркером.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewAnalysis создаёт анализ в статусе QUEUED с копией задач проекта.
func NewAnalysis(project *Project, trigger AnalysisTrigger) *Analysis {
	tasks := CloneTaskRecords(project.Tasks)
	return &Analysis{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Status:    AnalysisStatusQueued,
		Trigger:   trigger,
		Tasks:     tasks,
		TaskCount: len(tasks),
		CreatedAt: time.Now(),
	}
}

// Duration возвращает время выполнения анализа.
func (a *Analysis) Duration() time.Duration {
	if a.StartedAt == nil || a.FinishedAt == nil {
		return 0
	}
	return a.FinishedAt.Sub(*a.StartedAt)
}

// IsFinished возвращает true, если анализ завершён.
func (a *Analysis) IsFinished() bool {
	return a.Status.IsTerminal()
}

// MarkRunning переводит анализ в статус RUNNING.
func (a *Analysis) MarkRunning() {
	now := time.Now()
	a.Status = AnalysisStatusRunning
	a.StartedAt = &now
}

// MarkSucceeded переводит анализ в статус SUCCEEDED с результатом.
func (a *Analysis) MarkSucceeded(result *Result) {
	now := time.Now()
	a.Status = AnalysisStatusSucceeded
	a.FinishedAt = &now
	a.Result = result
	a.ErrorKind = ""
	a.Error = ""
}

// MarkFailed переводит анализ в статус FAILED с ошибкой.
func (a *Analysis) MarkFailed(kind, msg string) {
	now := time.Now()
	a.Status = AnalysisStatusFailed
	a.FinishedAt = &now
	a.Result = nil
	a.ErrorKind = kind
	a.Error = msg
}
