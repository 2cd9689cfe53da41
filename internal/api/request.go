package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/engine"
)

// maxBodyBytes — ограничение размера тела запроса.
const maxBodyBytes = 8 << 20

var (
	errBodyTooLarge = errors.New("request body too large")
	errInvalidBody  = errors.New("invalid request body")
	errTooManyTasks = errors.New("too many tasks")
)

// decodeBody читает JSON-тело запроса в v.
// Числа декодируются как json.Number. Пустое тело допустимо,
// если allowEmpty.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errInvalidBody
	}

	if len(bytes.TrimSpace(body)) == 0 {
		if allowEmpty {
			return nil
		}
		return errInvalidBody
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

// writeDecodeError отправляет ответ на ошибку decodeBody.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		PayloadTooLarge(w, fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes))
		return
	}
	BadRequest(w, "invalid request body")
}

// taskRecords приводит поле tasks запроса к списку записей
// и проверяет ограничение на количество задач.
func (h *Handler) taskRecords(v any) ([]domain.TaskRecord, error) {
	records, err := engine.ToTaskRecords(v)
	if err != nil {
		return nil, err
	}
	if err := h.checkTaskCount(len(records)); err != nil {
		return nil, err
	}
	return records, nil
}

func (h *Handler) checkTaskCount(n int) error {
	if n > h.maxTasks {
		return fmt.Errorf("%w: %d (max %d)", errTooManyTasks, n, h.maxTasks)
	}
	return nil
}

// pagination читает limit и offset из query.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset")
		}
	}
	return limit, offset, nil
}
