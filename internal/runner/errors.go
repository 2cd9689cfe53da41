package runner

import "errors"

// Ошибки выполнения анализа.
var (
	// ErrAnalysisNotFound — анализ не найден в хранилище.
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrAnalysisNotQueued — анализ не в статусе QUEUED (уже захвачен или завершён).
	ErrAnalysisNotQueued = errors.New("analysis is not in QUEUED status")
)
