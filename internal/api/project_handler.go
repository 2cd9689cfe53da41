package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/scheduler"
)

// ListProjects возвращает список проектов.
// GET /api/v1/projects?limit=...&offset=...
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	projects, err := h.projects.List(r.Context(), repo.ProjectFilter{Limit: limit, Offset: offset})
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ProjectResponse, len(projects))
	for i, p := range projects {
		result[i] = ProjectFromDomain(p)
	}

	List(w, result, len(result))
}

// CreateProject создаёт новый проект.
// POST /api/v1/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		BadRequest(w, "name is required")
		return
	}

	tasks := make([]domain.TaskRecord, 0)
	if req.Tasks != nil {
		records, ok := h.submittedTasks(w, req.Tasks)
		if !ok {
			return
		}
		tasks = records
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:        uuid.New(),
		Name:      name,
		Tasks:     tasks,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.SnapshotCron != "" {
		if !h.applySnapshots(w, project, req.SnapshotCron, req.Timezone, now) {
			return
		}
	}

	if err := h.projects.Create(r.Context(), project); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("project created", "project_id", project.ID, "name", project.Name, "tasks", len(tasks))

	Created(w, ProjectFromDomain(*project))
}

// GetProject возвращает проект по ID.
// GET /api/v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	Success(w, ProjectFromDomain(*project))
}

// UpdateProject обновляет проект.
// PUT /api/v1/projects/{id}
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(w, "name cannot be empty")
			return
		}
		project.Name = name
	}
	project.UpdatedAt = time.Now().UTC()

	if err := h.projects.Update(r.Context(), project); HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	Success(w, ProjectFromDomain(*project))
}

// DeleteProject удаляет проект вместе с его анализами.
// DELETE /api/v1/projects/{id}
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid project id")
		return
	}

	if err := h.projects.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	h.logger.Info("project deleted", "project_id", id)

	NoContent(w)
}

// GetProjectTasks возвращает текущий список задач проекта.
// GET /api/v1/projects/{id}/tasks
func (h *Handler) GetProjectTasks(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	tasks := project.Tasks
	if tasks == nil {
		tasks = make([]domain.TaskRecord, 0)
	}

	List(w, tasks, len(tasks))
}

// SetProjectTasks заменяет список задач проекта.
// Задачи сохраняются как есть и проверяются при анализе.
// PUT /api/v1/projects/{id}/tasks
func (h *Handler) SetProjectTasks(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var req SetTasksRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	tasks := make([]domain.TaskRecord, 0)
	if req.Tasks != nil {
		records, ok := h.submittedTasks(w, req.Tasks)
		if !ok {
			return
		}
		tasks = records
	}

	project.Tasks = tasks
	project.UpdatedAt = time.Now().UTC()

	if err := h.projects.Update(r.Context(), project); HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	Success(w, ProjectFromDomain(*project))
}

// SetProjectSnapshots настраивает плановые снимки проекта.
// PUT /api/v1/projects/{id}/snapshots
func (h *Handler) SetProjectSnapshots(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var req SetSnapshotsRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	now := time.Now().UTC()
	if strings.TrimSpace(req.Cron) == "" {
		project.DisableSnapshots()
	} else if !h.applySnapshots(w, project, req.Cron, req.Timezone, now) {
		return
	}

	if err := h.projects.Update(r.Context(), project); HandleRepoError(w, h.logger, err, "project not found") {
		return
	}

	Success(w, ProjectFromDomain(*project))
}

// loadProject читает проект по {id} из пути.
// При ошибке ответ уже отправлен.
func (h *Handler) loadProject(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid project id")
		return nil, false
	}

	project, err := h.projects.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "project not found") {
		return nil, false
	}
	return project, true
}

// submittedTasks проверяет форму присланного списка задач.
func (h *Handler) submittedTasks(w http.ResponseWriter, v any) ([]domain.TaskRecord, bool) {
	records, err := h.taskRecords(v)
	if errors.Is(err, errTooManyTasks) {
		PayloadTooLarge(w, err.Error())
		return nil, false
	}
	if HandleEngineError(w, h.logger, err) {
		return nil, false
	}
	if records == nil {
		records = make([]domain.TaskRecord, 0)
	}
	return records, true
}

// applySnapshots проверяет расписание снимков и записывает его в проект.
func (h *Handler) applySnapshots(w http.ResponseWriter, project *domain.Project, cronExpr, timezone string, now time.Time) bool {
	cronExpr = strings.TrimSpace(cronExpr)
	if timezone == "" {
		timezone = "UTC"
	}

	if err := scheduler.ValidateCronExpr(cronExpr); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	if err := scheduler.ValidateTimezone(timezone); err != nil {
		BadRequest(w, err.Error())
		return false
	}

	next, err := scheduler.CalculateNextSnapshot(cronExpr, timezone, now)
	if err != nil {
		BadRequest(w, err.Error())
		return false
	}

	project.SnapshotCron = cronExpr
	project.Timezone = timezone
	project.NextSnapshotAt = &next
	project.UpdatedAt = now
	return true
}
