package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/runner"
)

// Эндпоинты браузерного приложения: ответы без конверта data,
// ошибки в виде {"error": "<message>"}.

type legacyError struct {
	Error string `json:"error"`
}

// LegacyHealth — проверка доступности.
// GET /api/health
func (h *Handler) LegacyHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// LegacyGetTasks возвращает текущий список задач.
// GET /api/tasks
func (h *Handler) LegacyGetTasks(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.state.Get())
}

// LegacySetTasks заменяет текущий список задач.
// Отсутствующее поле tasks очищает список.
// POST /api/tasks
func (h *Handler) LegacySetTasks(w http.ResponseWriter, r *http.Request) {
	var req SetTasksRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeLegacyError(w, err)
		return
	}

	records, err := h.taskRecords(req.Tasks)
	if err != nil {
		writeLegacyError(w, err)
		return
	}

	h.state.Set(records)

	JSON(w, http.StatusOK, map[string]string{"message": "Tasks updated"})
}

// LegacyAnalyze считает расписание для переданного списка задач.
// POST /api/analyze
func (h *Handler) LegacyAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeLegacyError(w, err)
		return
	}

	records, err := h.taskRecords(req.Tasks)
	if err != nil {
		writeLegacyError(w, err)
		return
	}

	result, err := runner.Analyze(records)
	if err != nil {
		writeLegacyError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]*domain.Result{"result": result})
}

func writeLegacyError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) || errors.Is(err, errTooManyTasks) {
		status = http.StatusRequestEntityTooLarge
	}
	JSON(w, status, legacyError{Error: err.Error()})
}
