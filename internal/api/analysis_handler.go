package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/telemetry"
)

// CreateAnalysis ставит анализ текущего списка задач проекта в очередь.
//
// С брокером публикуется analysis.requested и возвращается анализ
// в статусе QUEUED. Без брокера анализ выполняется сразу и
// возвращается завершённым.
// POST /api/v1/projects/{id}/analyses
func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	var req CreateAnalysisRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeDecodeError(w, err)
		return
	}

	if err := h.checkTaskCount(len(project.Tasks)); err != nil {
		PayloadTooLarge(w, err.Error())
		return
	}

	// Проверяем idempotency key
	if req.IdempotencyKey != "" {
		existing, err := h.analyses.GetByIdempotencyKey(r.Context(), project.ID, req.IdempotencyKey)
		if err == nil {
			Success(w, AnalysisFromDomain(*existing))
			return
		}
		if !errors.Is(err, repo.ErrNotFound) {
			InternalError(w, h.logger, err)
			return
		}
	}

	analysis := domain.NewAnalysis(project, domain.AnalysisTriggerAPI)
	analysis.IdempotencyKey = req.IdempotencyKey

	if err := h.analyses.Create(r.Context(), analysis); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			Conflict(w, "analysis with this idempotency key already exists")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	logger := telemetry.WithAnalysisID(
		telemetry.WithProjectID(telemetry.LoggerOr(r.Context(), h.logger), project.ID.String()),
		analysis.ID.String(),
	)
	logger.Info("analysis queued", "tasks", analysis.TaskCount)

	switch {
	case h.publisher != nil:
		payload := mq.AnalysisRequestedPayload{AnalysisID: analysis.ID, ProjectID: project.ID}
		if err := h.publisher.PublishAnalysisRequested(r.Context(), payload); err != nil {
			// Воркер заберёт анализ через polling
			logger.Warn("failed to publish analysis.requested", "error", err)
		}

	case h.runner != nil:
		done, err := h.runner.Execute(r.Context(), analysis.ID)
		if err != nil {
			InternalError(w, h.logger, fmt.Errorf("execute analysis: %w", err))
			return
		}
		analysis = done
	}

	Created(w, AnalysisFromDomain(*analysis))
}

// ListAnalyses возвращает историю анализов проекта.
// GET /api/v1/projects/{id}/analyses?status=...&limit=...&offset=...
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r)
	if !ok {
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	filter := repo.AnalysisFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := domain.ParseAnalysisStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	analyses, err := h.analyses.ListByProject(r.Context(), project.ID, filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]AnalysisResponse, len(analyses))
	for i, a := range analyses {
		result[i] = AnalysisFromDomain(a)
	}

	List(w, result, len(result))
}

// GetAnalysis возвращает анализ по ID.
// GET /api/v1/analyses/{id}
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid analysis id")
		return
	}

	analysis, err := h.analyses.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "analysis not found") {
		return
	}

	Success(w, AnalysisFromDomain(*analysis))
}
