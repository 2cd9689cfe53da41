package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/Critpath/internal/runner"
)

// Analyze считает расписание для переданного списка задач.
// POST /api/v1/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeDecodeError(w, err)
		return
	}

	records, err := h.taskRecords(req.Tasks)
	if errors.Is(err, errTooManyTasks) {
		PayloadTooLarge(w, err.Error())
		return
	}
	if HandleEngineError(w, h.logger, err) {
		return
	}

	result, err := runner.Analyze(records)
	if HandleEngineError(w, h.logger, err) {
		return
	}

	Success(w, result)
}
