package domain

// TaskRecord — сырая запись задачи в том виде, в каком её прислал клиент.
//
// Ключи соответствуют JSON-полям: "id", "name", "duration", "dependencies".
// Значения не типизированы: duration может прийти числом или строкой,
// dependencies — списком или отсутствовать. Типизация и проверка
// выполняются engine.Validate.
type TaskRecord map[string]any

// Clone возвращает поверхностную копию записи.
// Списки dependencies копируются, чтобы нормализация в одной копии
// не затрагивала другую.
func (r TaskRecord) Clone() TaskRecord {
	if r == nil {
		return nil
	}
	out := make(TaskRecord, len(r))
	for k, v := range r {
		if list, ok := v.([]any); ok {
			v = append([]any(nil), list...)
		}
		out[k] = v
	}
	return out
}

// CloneTaskRecords копирует список записей (каждую через Clone).
func CloneTaskRecords(records []TaskRecord) []TaskRecord {
	if records == nil {
		return nil
	}
	out := make([]TaskRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// Task — проверенная задача (activity) проекта.
//
// Создаётся валидатором из TaskRecord и не меняется в течение одного анализа.
type Task struct {
	// ID — уникальный непустой идентификатор задачи.
	ID string `json:"id"`

	// Duration — длительность, неотрицательное вещественное число.
	Duration float64 `json:"duration"`

	// Dependencies — ID предшественников.
	// Нормализованное множество: без пробелов по краям, без повторов,
	// в порядке первого появления.
	Dependencies []string `json:"dependencies"`
}

// HasDependencies возвращает true, если у задачи есть предшественники.
func (t *Task) HasDependencies() bool {
	return len(t.Dependencies) > 0
}
