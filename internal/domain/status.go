package domain

// AnalysisStatus — статус анализа.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCEEDED
//	                 ↘ FAILED
type AnalysisStatus string

const (
	// AnalysisStatusQueued — анализ создан и ждёт воркера.
	AnalysisStatusQueued AnalysisStatus = "QUEUED"

	// AnalysisStatusRunning — анализ захвачен воркером.
	AnalysisStatusRunning AnalysisStatus = "RUNNING"

	// AnalysisStatusSucceeded — расписание посчитано.
	AnalysisStatusSucceeded AnalysisStatus = "SUCCEEDED"

	// AnalysisStatusFailed — входные данные отклонены (валидация или цикл).
	AnalysisStatusFailed AnalysisStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s AnalysisStatus) IsTerminal() bool {
	switch s {
	case AnalysisStatusSucceeded, AnalysisStatusFailed:
		return true
	default:
		return false
	}
}

// ParseAnalysisStatus парсит строку в AnalysisStatus.
// Возвращает false для неизвестного значения.
func ParseAnalysisStatus(s string) (AnalysisStatus, bool) {
	switch AnalysisStatus(s) {
	case AnalysisStatusQueued, AnalysisStatusRunning, AnalysisStatusSucceeded, AnalysisStatusFailed:
		return AnalysisStatus(s), true
	default:
		return "", false
	}
}

// AnalysisTrigger — источник анализа.
type AnalysisTrigger string

const (
	// AnalysisTriggerAPI — анализ запрошен через API/CLI.
	AnalysisTriggerAPI AnalysisTrigger = "api"

	// AnalysisTriggerSchedule — плановый снимок от scheduler.
	AnalysisTriggerSchedule AnalysisTrigger = "schedule"
)
