package engine

import (
	"math"

	"github.com/shaiso/Critpath/internal/domain"
)

// Tolerance — абсолютный допуск для признака критичности (|slack| < Tolerance).
const Tolerance = 1e-6

// Times — временные параметры одной задачи.
type Times struct {
	ES    float64
	EF    float64
	LS    float64
	LF    float64
	Slack float64
}

// Critical возвращает true, если задача лежит на критическом пути.
func (t Times) Critical() bool {
	return math.Abs(t.Slack) < Tolerance
}

// Schedule — результат прямого и обратного прохода.
type Schedule struct {
	// Order — топологический порядок, по которому выполнялись проходы.
	Order []*Node

	// Times — параметры задач (taskID → Times).
	Times map[string]Times

	// ProjectDuration — максимальный EF, 0 для пустого набора.
	ProjectDuration float64
}

// ComputeSchedule выполняет прямой и обратный проход по топологическому порядку.
//
// Прямой проход: ES = max EF предшественников (0 без них), EF = ES + duration.
// Обратный проход в обратном порядке: LF = min LS последователей
// (длительность проекта без них), LS = LF - duration.
func ComputeSchedule(order []*Node) *Schedule {
	times := make([]Times, len(order))
	pos := make(map[*Node]int, len(order))
	for i, node := range order {
		pos[node] = i
	}

	// Прямой проход
	var projectDuration float64
	for i, node := range order {
		var es float64
		for _, dep := range node.DependsOn {
			if ef := times[pos[dep]].EF; ef > es {
				es = ef
			}
		}
		times[i].ES = es
		times[i].EF = es + node.Task.Duration
		if times[i].EF > projectDuration {
			projectDuration = times[i].EF
		}
	}

	// Обратный проход
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		lf := projectDuration
		for j, succ := range node.Dependents {
			ls := times[pos[succ]].LS
			if j == 0 || ls < lf {
				lf = ls
			}
		}
		times[i].LF = lf
		times[i].LS = lf - node.Task.Duration
		times[i].Slack = times[i].LS - times[i].ES
	}

	s := &Schedule{
		Order:           order,
		Times:           make(map[string]Times, len(order)),
		ProjectDuration: projectDuration,
	}
	for i, node := range order {
		s.Times[node.ID] = times[i]
	}
	return s
}

// Entries собирает записи расписания в топологическом порядке.
func (s *Schedule) Entries() []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, 0, len(s.Order))
	for _, node := range s.Order {
		t := s.Times[node.ID]
		entries = append(entries, domain.ScheduleEntry{
			ID:       node.ID,
			Name:     node.ID,
			Duration: node.Task.Duration,
			ES:       t.ES,
			EF:       t.EF,
			LS:       t.LS,
			LF:       t.LF,
			Slack:    t.Slack,
			Critical: t.Critical(),
		})
	}
	return entries
}
