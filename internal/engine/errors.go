package engine

import (
	"errors"
	"strings"
)

// Ошибки валидации списка задач.
var (
	// ErrInvalidTaskList — вход не является непустым списком объектов.
	ErrInvalidTaskList = errors.New("invalid task list")

	// ErrMissingTaskID — у задачи нет поля id.
	ErrMissingTaskID = errors.New("task has no id")

	// ErrInvalidTaskID — id не является непустой строкой.
	ErrInvalidTaskID = errors.New("task has invalid id")

	// ErrMissingDuration — у задачи нет поля duration.
	ErrMissingDuration = errors.New("task has no duration")

	// ErrInvalidDuration — duration не приводится к числу.
	ErrInvalidDuration = errors.New("task duration is not a number")

	// ErrNegativeDuration — duration меньше нуля.
	ErrNegativeDuration = errors.New("task duration is negative")

	// ErrInvalidDependencies — dependencies не является списком ID.
	ErrInvalidDependencies = errors.New("task dependencies are not a list")

	// ErrSelfDependency — задача зависит от самой себя.
	ErrSelfDependency = errors.New("task depends on itself")

	// ErrDuplicateTaskID — несколько задач с одинаковым id.
	ErrDuplicateTaskID = errors.New("duplicate task id")

	// ErrUnknownDependency — задача зависит от несуществующей задачи.
	ErrUnknownDependency = errors.New("task depends on unknown task")
)

// ErrCyclicDependency — обнаружен цикл в зависимостях.
var ErrCyclicDependency = errors.New("cyclic dependency detected")

// Виды ошибок для внешних слоёв (HTTP-коды, метрики, записи анализов).
const (
	KindValidation = "validation"
	KindCycle      = "cycle"
)

// ValidationError — ошибка валидации с контекстом.
//
// Error() возвращает готовое сообщение для пользователя,
// Unwrap — базовую sentinel-ошибку для errors.Is.
type ValidationError struct {
	TaskID  string // ID задачи, если он известен
	Field   string // поле, вызвавшее ошибку
	Message string // сообщение для пользователя
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(taskID, field, message string, err error) *ValidationError {
	return &ValidationError{
		TaskID:  taskID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// CycleError — граф зависимостей содержит цикл.
type CycleError struct {
	// Remaining — задачи, которые так и не получили нулевую степень захода
	// (участники цикла и всё, что от них зависит), отсортированы.
	Remaining []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return "Cycle detected in dependencies"
}

// Unwrap возвращает ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// Detail возвращает сообщение со списком неразрешённых задач.
func (e *CycleError) Detail() string {
	if len(e.Remaining) == 0 {
		return e.Error()
	}
	return e.Error() + ": " + strings.Join(e.Remaining, ", ")
}

// Classify возвращает вид ошибки движка: KindValidation, KindCycle
// или пустую строку для ошибок другого происхождения.
func Classify(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var ce *CycleError
	if errors.As(err, &ce) {
		return KindCycle
	}
	return ""
}
