package engine

import (
	"sort"

	"github.com/shaiso/Critpath/internal/domain"
)

// Node — узел графа зависимостей (задача в AON-представлении).
type Node struct {
	// Task — провалидированная задача.
	Task *domain.Task

	// ID — идентификатор задачи.
	ID string

	// Index — позиция задачи во входном списке.
	Index int

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел (в порядке dependencies).
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла (в порядке входного списка).
	Dependents []*Node
}

// Graph — направленный граф зависимостей между задачами.
//
// Граф строится из провалидированных задач и может содержать цикл:
// цикл обнаруживается только при топологической сортировке.
type Graph struct {
	// Nodes — все узлы графа (taskID → Node).
	Nodes map[string]*Node

	// RootNodes — узлы без зависимостей в порядке входного списка.
	RootNodes []*Node

	// nodes — узлы в порядке входного списка.
	nodes []*Node
}

// BuildGraph строит граф из провалидированных задач.
//
// Задачи должны пройти Validate: неизвестные зависимости
// молча пропускаются.
func BuildGraph(tasks []domain.Task) *Graph {
	g := &Graph{
		Nodes:     make(map[string]*Node, len(tasks)),
		RootNodes: make([]*Node, 0),
		nodes:     make([]*Node, 0, len(tasks)),
	}

	// Первый проход: создаём все узлы
	for i := range tasks {
		task := &tasks[i]
		node := &Node{
			Task:       task,
			ID:         task.ID,
			Index:      i,
			DependsOn:  make([]*Node, 0, len(task.Dependencies)),
			Dependents: make([]*Node, 0),
		}
		g.Nodes[task.ID] = node
		g.nodes = append(g.nodes, node)
	}

	// Второй проход: связываем узлы по зависимостям.
	// Обход в порядке входного списка даёт Dependents, упорядоченные так же.
	for _, node := range g.nodes {
		for _, depID := range node.Task.Dependencies {
			depNode, exists := g.Nodes[depID]
			if !exists {
				continue
			}
			g.addEdge(depNode, node)
		}
	}

	for _, node := range g.nodes {
		if node.InDegree == 0 {
			g.RootNodes = append(g.RootNodes, node)
		}
	}

	return g
}

// addEdge добавляет ребро между узлами.
// Повторное ребро не добавляется, чтобы не учитывать InDegree дважды.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep == from {
			return
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// TopologicalOrder выполняет топологическую сортировку (алгоритм Кана).
//
// Очередь — FIFO: стартовые узлы в порядке входного списка, далее узлы
// добавляются в момент, когда их степень захода становится нулевой,
// в порядке Dependents. Для одинакового входа порядок всегда одинаков.
//
// Если часть узлов так и не получила нулевую степень захода,
// возвращается *CycleError.
func (g *Graph) TopologicalOrder() ([]*Node, error) {
	// Копия степеней захода по индексу узла, граф не модифицируется
	inDegree := make([]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node.Index] = node.InDegree
	}

	// Рабочий список: голова сдвигается, элементы не удаляются
	queue := make([]*Node, 0, len(g.nodes))
	queue = append(queue, g.RootNodes...)

	for head := 0; head < len(queue); head++ {
		node := queue[head]
		for _, dependent := range node.Dependents {
			inDegree[dependent.Index]--
			if inDegree[dependent.Index] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(queue) != len(g.nodes) {
		return nil, &CycleError{Remaining: g.unresolved(inDegree)}
	}

	return queue, nil
}

// unresolved возвращает отсортированные ID узлов с ненулевой степенью захода.
func (g *Graph) unresolved(inDegree []int) []string {
	ids := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node.Index] > 0 {
			ids = append(ids, node.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// GetNode возвращает узел по ID.
func (g *Graph) GetNode(id string) *Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.nodes)
}
