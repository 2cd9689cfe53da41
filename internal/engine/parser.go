package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/shaiso/Critpath/internal/domain"
)

// ParseTaskList парсит JSON-массив задач.
//
// Числа сохраняются как json.Number, чтобы duration не терял точность
// до приведения в Validate. Всё, что не является массивом объектов,
// в том числе массив с данными после него, отклоняется с ErrInvalidTaskList.
func ParseTaskList(data []byte) ([]domain.TaskRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, NewValidationError("", "", msgInvalidTaskList, ErrInvalidTaskList)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, NewValidationError("", "", msgInvalidTaskList, ErrInvalidTaskList)
	}

	return ToTaskRecords(v)
}

// ToTaskRecords приводит декодированное значение (результат json.Unmarshal в any)
// к списку записей задач.
//
// nil и пустой список пропускаются дальше: их отклонит Validate с тем же
// сообщением, что и любой другой некорректный вход.
func ToTaskRecords(v any) ([]domain.TaskRecord, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []domain.TaskRecord:
		return x, nil
	case []map[string]any:
		records := make([]domain.TaskRecord, len(x))
		for i, m := range x {
			records[i] = m
		}
		return records, nil
	case []any:
		records := make([]domain.TaskRecord, len(x))
		for i, item := range x {
			switch m := item.(type) {
			case map[string]any:
				records[i] = m
			case domain.TaskRecord:
				records[i] = m
			default:
				return nil, NewValidationError("", "", msgInvalidTaskList, ErrInvalidTaskList)
			}
		}
		return records, nil
	default:
		return nil, NewValidationError("", "", msgInvalidTaskList, ErrInvalidTaskList)
	}
}
