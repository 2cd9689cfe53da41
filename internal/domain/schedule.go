package domain

// Метки служебных событий AOA-представления.
const (
	// EventStart — событие начала проекта (пустое множество предшественников).
	EventStart = "START"

	// EventEnd — событие окончания проекта.
	EventEnd = "END"
)

// ScheduleEntry — расписание одной задачи, результат прямого и обратного прохода.
type ScheduleEntry struct {
	// ID — идентификатор задачи.
	ID string `json:"id"`

	// Name — отображаемое имя. Совпадает с ID.
	Name string `json:"name"`

	// Duration — длительность задачи.
	Duration float64 `json:"duration"`

	// ES — earliest start, раннее начало.
	ES float64 `json:"es"`

	// EF — earliest finish, раннее окончание (ES + Duration).
	EF float64 `json:"ef"`

	// LS — latest start, позднее начало (LF - Duration).
	LS float64 `json:"ls"`

	// LF — latest finish, позднее окончание.
	LF float64 `json:"lf"`

	// Slack — полный резерв времени (LS - ES).
	Slack float64 `json:"slack"`

	// Critical — задача лежит на критическом пути (|Slack| < 1e-6).
	Critical bool `json:"critical"`
}

// EventNode — синтетическое событие (узел AOA-сети).
//
// Событие определяется множеством предшественников, общим для одной
// или нескольких задач. START — пустое множество, END — окончание проекта.
type EventNode struct {
	// Node — метка: "START", "END" или "after{B,C}".
	Node string `json:"node"`

	// Earliest — раннее время наступления события.
	Earliest float64 `json:"earliest"`

	// Latest — позднее время наступления события.
	Latest float64 `json:"latest"`

	// Members — задачи, которые начинаются после этого события.
	Members []string `json:"members"`
}

// Result — результат CPM-анализа.
//
// Единственный внешний артефакт движка: пересчитывается полностью
// при каждом вызове.
type Result struct {
	// ProjectDuration — длительность проекта (максимальный EF, 0 для пустого набора).
	ProjectDuration float64 `json:"project_duration"`

	// Tasks — расписания задач в топологическом порядке.
	Tasks []ScheduleEntry `json:"tasks"`

	// Nodes — события: START, по одному на каждое непустое множество предшественников, END.
	Nodes []EventNode `json:"nodes"`
}

// CriticalPath возвращает ID критических задач в топологическом порядке.
func (r *Result) CriticalPath() []string {
	path := make([]string, 0)
	for _, t := range r.Tasks {
		if t.Critical {
			path = append(path, t.ID)
		}
	}
	return path
}

// Task возвращает расписание задачи по ID.
func (r *Result) Task(id string) (ScheduleEntry, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return ScheduleEntry{}, false
}

// Node возвращает событие по метке.
func (r *Result) Node(label string) (EventNode, bool) {
	for _, n := range r.Nodes {
		if n.Node == label {
			return n, true
		}
	}
	return EventNode{}, false
}
