package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/Critpath/internal/engine"
	"github.com/shaiso/Critpath/internal/repo"
)

// ErrorCode — машиночитаемый код ошибки в ответе.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeCycleDetected    ErrorCode = "CYCLE_DETECTED"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Status возвращает HTTP-статус для кода.
func (c ErrorCode) Status() int {
	switch c {
	case ErrCodeValidationFailed, ErrCodeCycleDetected, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse — тело ответа с ошибкой: {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — код и текст ошибки. Для CYCLE_DETECTED в Tasks
// перечислены задачи, которые не удалось упорядочить.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Tasks   []string  `json:"tasks,omitempty"`
}

// DataResponse — тело успешного ответа: {"data": ...}.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — список с числом элементов на странице.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON пишет data со статусом status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Fail пишет ошибку со статусом, соответствующим коду.
func Fail(w http.ResponseWriter, detail ErrorDetail) {
	JSON(w, detail.Code.Status(), ErrorResponse{Error: detail})
}

func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, ErrorDetail{Code: ErrCodeBadRequest, Message: message})
}

func NotFound(w http.ResponseWriter, message string) {
	Fail(w, ErrorDetail{Code: ErrCodeNotFound, Message: message})
}

func Conflict(w http.ResponseWriter, message string) {
	Fail(w, ErrorDetail{Code: ErrCodeConflict, Message: message})
}

func PayloadTooLarge(w http.ResponseWriter, message string) {
	Fail(w, ErrorDetail{Code: ErrCodePayloadTooLarge, Message: message})
}

func InvalidState(w http.ResponseWriter, message string) {
	Fail(w, ErrorDetail{Code: ErrCodeInvalidState, Message: message})
}

// InternalError логирует err и отвечает 500 без подробностей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Fail(w, ErrorDetail{Code: ErrCodeInternalError, Message: "internal server error"})
}

// HandleRepoError отвечает на ошибку хранилища. Возвращает false, если err == nil.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, repo.ErrNotFound):
		NotFound(w, notFoundMsg)
	case errors.Is(err, repo.ErrInvalidState):
		InvalidState(w, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}

// HandleEngineError отвечает 400 на ошибку валидации или цикл.
// Текст ошибки движка передаётся клиенту без изменений.
func HandleEngineError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	switch engine.Classify(err) {
	case engine.KindValidation:
		Fail(w, ErrorDetail{Code: ErrCodeValidationFailed, Message: err.Error()})
	case engine.KindCycle:
		detail := ErrorDetail{Code: ErrCodeCycleDetected, Message: err.Error()}
		var cycle *engine.CycleError
		if errors.As(err, &cycle) {
			detail.Tasks = cycle.Remaining
		}
		Fail(w, detail)
	default:
		InternalError(w, logger, err)
	}
	return true
}
