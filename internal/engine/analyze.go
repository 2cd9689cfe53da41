package engine

import (
	"github.com/shaiso/Critpath/internal/domain"
)

// Analyze выполняет полный CPM-анализ списка задач.
//
// Конвейер: Validate → BuildGraph → TopologicalOrder → ComputeSchedule →
// DeriveEventNodes. Ошибки *ValidationError и *CycleError возвращаются
// без изменений, частичный результат не возвращается.
//
// Отсутствующие dependencies записываются в records как пустой список.
func Analyze(records []domain.TaskRecord) (*domain.Result, error) {
	tasks, err := Validate(records)
	if err != nil {
		return nil, err
	}
	return AnalyzeTasks(tasks)
}

// AnalyzeTasks выполняет анализ уже провалидированных задач.
func AnalyzeTasks(tasks []domain.Task) (*domain.Result, error) {
	graph := BuildGraph(tasks)

	order, err := graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	schedule := ComputeSchedule(order)

	return &domain.Result{
		ProjectDuration: schedule.ProjectDuration,
		Tasks:           schedule.Entries(),
		Nodes:           DeriveEventNodes(schedule),
	}, nil
}

// AnalyzeJSON парсит JSON-массив задач и выполняет анализ.
func AnalyzeJSON(data []byte) (*domain.Result, error) {
	records, err := ParseTaskList(data)
	if err != nil {
		return nil, err
	}
	return Analyze(records)
}
