package engine

import (
	"sort"
	"strings"

	"github.com/shaiso/Critpath/internal/domain"
)

// keySeparator разделяет ID в ключе группы. Не встречается в печатных ID.
const keySeparator = "\x1f"

// eventGroup — задачи с одинаковым множеством предшественников.
type eventGroup struct {
	preds   []string // отсортированные ID предшественников
	members []*Node  // в топологическом порядке
}

// DeriveEventNodes строит AOA-события по расписанию.
//
// Задачи группируются по нормализованному множеству предшественников:
// порядок и повторы в исходном списке dependencies не влияют на группу.
// Порядок результата: START, затем группы в порядке первого участника
// в топологическом порядке, затем END.
func DeriveEventNodes(s *Schedule) []domain.EventNode {
	start := domain.EventNode{
		Node:     domain.EventStart,
		Earliest: 0,
		Latest:   0,
		Members:  make([]string, 0),
	}

	groups := make(map[string]*eventGroup)
	ordered := make([]*eventGroup, 0)

	for _, node := range s.Order {
		if len(node.DependsOn) == 0 {
			start.Members = append(start.Members, node.ID)
			continue
		}

		preds := predecessorSet(node)
		key := strings.Join(preds, keySeparator)
		g, ok := groups[key]
		if !ok {
			g = &eventGroup{preds: preds}
			groups[key] = g
			ordered = append(ordered, g)
		}
		g.members = append(g.members, node)
	}

	nodes := make([]domain.EventNode, 0, len(ordered)+2)
	nodes = append(nodes, start)

	for _, g := range ordered {
		nodes = append(nodes, g.eventNode(s))
	}

	nodes = append(nodes, domain.EventNode{
		Node:     domain.EventEnd,
		Earliest: s.ProjectDuration,
		Latest:   s.ProjectDuration,
		Members:  make([]string, 0),
	})

	return nodes
}

// eventNode вычисляет времена события группы.
// Earliest — max EF предшественников, Latest — min LS участников.
func (g *eventGroup) eventNode(s *Schedule) domain.EventNode {
	var earliest float64
	for i, id := range g.preds {
		ef := s.Times[id].EF
		if i == 0 || ef > earliest {
			earliest = ef
		}
	}

	members := make([]string, 0, len(g.members))
	var latest float64
	for i, node := range g.members {
		ls := s.Times[node.ID].LS
		if i == 0 || ls < latest {
			latest = ls
		}
		members = append(members, node.ID)
	}

	return domain.EventNode{
		Node:     EventLabel(g.preds),
		Earliest: earliest,
		Latest:   latest,
		Members:  members,
	}
}

// predecessorSet возвращает отсортированные ID непосредственных предшественников.
func predecessorSet(node *Node) []string {
	preds := make([]string, 0, len(node.DependsOn))
	for _, dep := range node.DependsOn {
		preds = append(preds, dep.ID)
	}
	sort.Strings(preds)
	return preds
}

// EventLabel возвращает метку события для множества предшественников:
// "START" для пустого множества, иначе "after{A,B}" с отсортированными ID.
func EventLabel(preds []string) string {
	if len(preds) == 0 {
		return domain.EventStart
	}
	sorted := make([]string, len(preds))
	copy(sorted, preds)
	sort.Strings(sorted)
	return "after{" + strings.Join(sorted, ",") + "}"
}
