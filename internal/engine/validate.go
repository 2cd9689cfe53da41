package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shaiso/Critpath/internal/domain"
)

// Поля записи задачи.
const (
	fieldID           = "id"
	fieldDuration     = "duration"
	fieldDependencies = "dependencies"
)

const msgInvalidTaskList = "Input must be a non-empty list of task objects"

// Validate выполняет полную валидацию списка задач и возвращает типизированные задачи.
//
// Проверки выполняются по задачам в порядке списка, затем по всему набору:
// - id: присутствует, непустая строка
// - duration: присутствует, приводится к числу, >= 0
// - dependencies: список строк (по умолчанию пустой), без ссылки на себя
// - уникальность id (все дубликаты в одном сообщении)
// - существование всех зависимостей
//
// Возвращается первая найденная ошибка (*ValidationError).
//
// Единственный побочный эффект: отсутствующее или null поле dependencies
// записывается в record как пустой список.
func Validate(records []domain.TaskRecord) ([]domain.Task, error) {
	if len(records) == 0 {
		return nil, NewValidationError("", "", msgInvalidTaskList, ErrInvalidTaskList)
	}

	tasks := make([]domain.Task, 0, len(records))
	for i, record := range records {
		task, err := validateTask(i+1, record)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := validateUniqueIDs(tasks); err != nil {
		return nil, err
	}

	if err := validateDependencies(tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// validateTask валидирует одну запись. pos — позиция в списке, начиная с 1.
func validateTask(pos int, record domain.TaskRecord) (domain.Task, error) {
	// Проверка id
	rawID, ok := record[fieldID]
	if !ok {
		return domain.Task{}, NewValidationError("", fieldID,
			fmt.Sprintf("Task #%d has no 'id'", pos), ErrMissingTaskID)
	}
	id, ok := rawID.(string)
	if !ok || id == "" {
		return domain.Task{}, NewValidationError("", fieldID,
			fmt.Sprintf("Task #%d has invalid 'id' (must be non-empty string).", pos), ErrInvalidTaskID)
	}

	// Проверка duration
	rawDuration, ok := record[fieldDuration]
	if !ok {
		return domain.Task{}, NewValidationError(id, fieldDuration,
			fmt.Sprintf("Task %s: missing 'duration'.", id), ErrMissingDuration)
	}
	duration, ok := coerceDuration(rawDuration)
	if !ok {
		return domain.Task{}, NewValidationError(id, fieldDuration,
			fmt.Sprintf("Task %s: 'duration' must be a number.", id), ErrInvalidDuration)
	}
	if duration < 0 {
		return domain.Task{}, NewValidationError(id, fieldDuration,
			fmt.Sprintf("Task %s: 'duration' must be >= 0.", id), ErrNegativeDuration)
	}

	// Проверка dependencies
	deps, err := parseDependencies(id, record)
	if err != nil {
		return domain.Task{}, err
	}

	return domain.Task{ID: id, Duration: duration, Dependencies: deps}, nil
}

// coerceDuration приводит значение duration к float64.
//
// Принимаются числа любых Go-типов, json.Number и числовые строки
// (пробелы по краям допускаются). NaN и бесконечности не принимаются.
func coerceDuration(v any) (float64, bool) {
	var f float64

	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		// true и false не приводятся к 1 и 0.
		return 0, false
	case json.Number:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x.String()), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDependencies разбирает поле dependencies в список ID без повторов
// в порядке первого появления. ID остаются как есть: сопоставление
// с задачами выполняет validateDependencies.
//
// Ссылка на себя сравнивается без пробелов по краям с обеих сторон.
func parseDependencies(id string, record domain.TaskRecord) ([]string, error) {
	raw, ok := record[fieldDependencies]
	if !ok || raw == nil {
		record[fieldDependencies] = []any{}
		return []string{}, nil
	}

	var items []any
	switch x := raw.(type) {
	case []any:
		items = x
	case []string:
		items = make([]any, len(x))
		for i, s := range x {
			items[i] = s
		}
	default:
		return nil, NewValidationError(id, fieldDependencies,
			fmt.Sprintf("Task %s: 'dependencies' must be a list.", id), ErrInvalidDependencies)
	}

	self := strings.TrimSpace(id)
	deps := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	selfDep := false
	for _, item := range items {
		dep, ok := item.(string)
		if !ok {
			return nil, NewValidationError(id, fieldDependencies,
				fmt.Sprintf("Task %s: 'dependencies' must contain only task ids.", id), ErrInvalidDependencies)
		}
		if dep == id || strings.TrimSpace(dep) == self {
			selfDep = true
		}
		if seen[dep] {
			continue
		}
		seen[dep] = true
		deps = append(deps, dep)
	}

	if selfDep {
		return nil, NewValidationError(id, fieldDependencies,
			fmt.Sprintf("Task %s: cannot depend on itself.", id), ErrSelfDependency)
	}

	return deps, nil
}

// validateUniqueIDs проверяет уникальность ID.
// Все дубликаты перечисляются в одном сообщении, отсортированными.
func validateUniqueIDs(tasks []domain.Task) error {
	counts := make(map[string]int, len(tasks))
	for i := range tasks {
		counts[tasks[i].ID]++
	}
	if len(counts) == len(tasks) {
		return nil
	}

	dups := make([]string, 0)
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)

	return NewValidationError("", fieldID,
		"Duplicate task ids found: "+strings.Join(dups, ", "), ErrDuplicateTaskID)
}

// validateDependencies проверяет, что все зависимости ссылаются на существующие задачи,
// и заменяет их ID задач. Точное совпадение имеет приоритет, иначе ID зависимости
// и задач сравниваются без пробелов по краям. Повторы после сопоставления отбрасываются.
func validateDependencies(tasks []domain.Task) error {
	ids := make(map[string]bool, len(tasks))
	trimmed := make(map[string]string, len(tasks))
	for i := range tasks {
		id := tasks[i].ID
		ids[id] = true
		if key := strings.TrimSpace(id); trimmed[key] == "" {
			trimmed[key] = id
		}
	}

	for i := range tasks {
		task := &tasks[i]
		resolved := make([]string, 0, len(task.Dependencies))
		seen := make(map[string]bool, len(task.Dependencies))
		for _, dep := range task.Dependencies {
			if !ids[dep] {
				id, ok := trimmed[strings.TrimSpace(dep)]
				if !ok {
					return NewValidationError(task.ID, fieldDependencies,
						fmt.Sprintf("Task %s: dependency '%s' does not exist.", task.ID, strings.TrimSpace(dep)), ErrUnknownDependency)
				}
				dep = id
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			resolved = append(resolved, dep)
		}
		task.Dependencies = resolved
	}

	return nil
}
