package api

import (
	"sync"

	"github.com/shaiso/Critpath/internal/domain"
)

// TaskListState — текущий список задач браузерного приложения.
//
// Один список на процесс, без привязки к проекту. Значение
// копируется при каждом чтении и записи.
type TaskListState struct {
	mu    sync.RWMutex
	tasks []domain.TaskRecord
}

// NewTaskListState создаёт пустое состояние.
func NewTaskListState() *TaskListState {
	return &TaskListState{tasks: make([]domain.TaskRecord, 0)}
}

// Get возвращает копию текущего списка.
func (s *TaskListState) Get() []domain.TaskRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneTaskRecords(s.tasks)
}

// Set заменяет текущий список копией tasks.
func (s *TaskListState) Set(tasks []domain.TaskRecord) {
	if tasks == nil {
		tasks = make([]domain.TaskRecord, 0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = domain.CloneTaskRecords(tasks)
}
