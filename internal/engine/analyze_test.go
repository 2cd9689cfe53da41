package engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/shaiso/Critpath/internal/domain"
)

// referenceNetwork — сеть из восьми задач с двумя группами общих предшественников.
const referenceNetwork = `[
	{"id": "A", "duration": 3},
	{"id": "B", "duration": 11, "dependencies": ["A"]},
	{"id": "C", "duration": 13},
	{"id": "D", "duration": 5, "dependencies": ["A"]},
	{"id": "E", "duration": 4, "dependencies": ["B", "C"]},
	{"id": "F", "duration": 6, "dependencies": ["C", "B"]},
	{"id": "G", "duration": 2, "dependencies": ["F"]},
	{"id": "H", "duration": 1, "dependencies": ["D", "E", "F"]}
]`

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < Tolerance
}

func TestAnalyze_SimpleChain(t *testing.T) {
	records := mustParse(t, `[
		{"id": "A", "duration": 2},
		{"id": "B", "duration": 3, "dependencies": ["A"]},
		{"id": "C", "duration": 4, "dependencies": ["B"]}
	]`)

	result, err := Analyze(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 9 {
		t.Errorf("expected project duration 9, got %v", result.ProjectDuration)
	}
	for _, task := range result.Tasks {
		if !task.Critical {
			t.Errorf("task %s should be critical", task.ID)
		}
		if task.Name != task.ID {
			t.Errorf("expected name %q, got %q", task.ID, task.Name)
		}
	}

	c, _ := result.Task("C")
	if c.ES != 5 || c.EF != 9 || c.LS != 5 || c.LF != 9 {
		t.Errorf("unexpected C times: %+v", c)
	}
}

func TestAnalyze_ReferenceNetwork(t *testing.T) {
	result, err := Analyze(mustParse(t, referenceNetwork))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 22 {
		t.Errorf("expected project duration 22, got %v", result.ProjectDuration)
	}

	expected := map[string][5]float64{
		"A": {0, 3, 0, 3, 0},
		"B": {3, 14, 3, 14, 0},
		"C": {0, 13, 1, 14, 1},
		"D": {3, 8, 16, 21, 13},
		"E": {14, 18, 17, 21, 3},
		"F": {14, 20, 14, 20, 0},
		"G": {20, 22, 20, 22, 0},
		"H": {20, 21, 21, 22, 1},
	}
	for id, want := range expected {
		got, ok := result.Task(id)
		if !ok {
			t.Errorf("task %s missing", id)
			continue
		}
		if !almostEqual(got.ES, want[0]) || !almostEqual(got.EF, want[1]) ||
			!almostEqual(got.LS, want[2]) || !almostEqual(got.LF, want[3]) ||
			!almostEqual(got.Slack, want[4]) {
			t.Errorf("task %s: expected (ES,EF,LS,LF,slack)=%v, got (%v,%v,%v,%v,%v)",
				id, want, got.ES, got.EF, got.LS, got.LF, got.Slack)
		}
	}

	order := make([]string, 0, len(result.Tasks))
	for _, task := range result.Tasks {
		order = append(order, task.ID)
	}
	if want := []string{"A", "C", "B", "D", "E", "F", "G", "H"}; !equalStrings(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}

	if want := []string{"A", "B", "F", "G"}; !equalStrings(result.CriticalPath(), want) {
		t.Errorf("expected critical path %v, got %v", want, result.CriticalPath())
	}

	expectedNodes := []domain.EventNode{
		{Node: "START", Earliest: 0, Latest: 0, Members: []string{"A", "C"}},
		{Node: "after{A}", Earliest: 3, Latest: 3, Members: []string{"B", "D"}},
		{Node: "after{B,C}", Earliest: 14, Latest: 14, Members: []string{"E", "F"}},
		{Node: "after{F}", Earliest: 20, Latest: 20, Members: []string{"G"}},
		{Node: "after{D,E,F}", Earliest: 20, Latest: 21, Members: []string{"H"}},
		{Node: "END", Earliest: 22, Latest: 22, Members: []string{}},
	}
	if !reflect.DeepEqual(result.Nodes, expectedNodes) {
		t.Errorf("unexpected nodes:\n got: %+v\nwant: %+v", result.Nodes, expectedNodes)
	}
}

func TestAnalyze_WhitespaceDependencies(t *testing.T) {
	records := mustParse(t, `[
		{"id": "A", "duration": 3},
		{"id": "B", "duration": "11.0", "dependencies": ["A"]},
		{"id": "C", "duration": 13},
		{"id": "D", "duration": "05", "dependencies": ["A"]},
		{"id": "E", "duration": 4, "dependencies": ["B", " C"]},
		{"id": "F", "duration": 6, "dependencies": ["C ", "B", "B"]},
		{"id": "G", "duration": 2, "dependencies": ["  F"]},
		{"id": "H", "duration": 1, "dependencies": ["D", " E  ", "  F"]}
	]`)

	result, err := Analyze(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	node, ok := result.Node("after{B,C}")
	if !ok {
		t.Fatal("node after{B,C} missing")
	}
	if !equalStrings(node.Members, []string{"E", "F"}) {
		t.Errorf("expected members [E F], got %v", node.Members)
	}
	if len(result.Nodes) != 6 {
		t.Errorf("expected 6 nodes, got %d", len(result.Nodes))
	}
	if result.ProjectDuration != 22 {
		t.Errorf("expected project duration 22, got %v", result.ProjectDuration)
	}
}

func TestAnalyze_ZeroDuration(t *testing.T) {
	records := []domain.TaskRecord{
		{"id": "A", "duration": 0},
		{"id": "B", "duration": 2, "dependencies": []any{"A"}},
		{"id": "C", "duration": 5, "dependencies": []any{"A"}},
		{"id": "D", "duration": 1, "dependencies": []any{"B", "C"}},
	}

	result, err := Analyze(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 6 {
		t.Errorf("expected project duration 6, got %v", result.ProjectDuration)
	}
	if want := []string{"A", "C", "D"}; !equalStrings(result.CriticalPath(), want) {
		t.Errorf("expected critical path %v, got %v", want, result.CriticalPath())
	}

	b, _ := result.Task("B")
	if !almostEqual(b.Slack, 3) {
		t.Errorf("expected B slack 3, got %v", b.Slack)
	}
}

func TestAnalyze_SingleTask(t *testing.T) {
	result, err := Analyze([]domain.TaskRecord{{"id": "A", "duration": 4.5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 4.5 {
		t.Errorf("expected project duration 4.5, got %v", result.ProjectDuration)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("expected START and END only, got %d nodes", len(result.Nodes))
	}
	if result.Nodes[0].Node != domain.EventStart || result.Nodes[1].Node != domain.EventEnd {
		t.Errorf("unexpected nodes: %+v", result.Nodes)
	}
	if len(result.Nodes[1].Members) != 0 {
		t.Errorf("END should have no members, got %v", result.Nodes[1].Members)
	}
}

func TestAnalyze_EmptyTaskSet(t *testing.T) {
	schedule := ComputeSchedule(nil)
	if schedule.ProjectDuration != 0 {
		t.Errorf("expected schedule duration 0, got %v", schedule.ProjectDuration)
	}

	result, err := AnalyzeTasks(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 0 {
		t.Errorf("expected project duration 0, got %v", result.ProjectDuration)
	}
	if len(result.Tasks) != 0 {
		t.Errorf("expected no tasks, got %v", result.Tasks)
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("expected START and END only, got %+v", result.Nodes)
	}
	for i, name := range []string{domain.EventStart, domain.EventEnd} {
		node := result.Nodes[i]
		if node.Node != name || node.Earliest != 0 || node.Latest != 0 || len(node.Members) != 0 {
			t.Errorf("unexpected node %d: %+v", i, node)
		}
	}
}

func TestAnalyze_Cycle(t *testing.T) {
	records := []domain.TaskRecord{
		{"id": "A", "duration": 1, "dependencies": []any{"B"}},
		{"id": "B", "duration": 1, "dependencies": []any{"A"}},
	}

	result, err := Analyze(records)
	if result != nil {
		t.Error("expected no partial result")
	}
	if !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}
	if err.Error() != "Cycle detected in dependencies" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestAnalyze_ValidationPropagates(t *testing.T) {
	_, err := Analyze([]domain.TaskRecord{{"id": "A", "duration": 1, "dependencies": []any{"X"}}})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.Error() != "Task A: dependency 'X' does not exist." {
		t.Errorf("unexpected message: %q", ve.Error())
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	first, err := AnalyzeJSON([]byte(referenceNetwork))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := AnalyzeJSON([]byte(referenceNetwork))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("results of two runs differ")
	}
}

func TestAnalyze_LargeNetwork(t *testing.T) {
	// Слоистая сеть: каждая задача зависит от двух задач предыдущего слоя
	const width, depth = 10, 100

	records := make([]domain.TaskRecord, 0, width*depth)
	for layer := 0; layer < depth; layer++ {
		for i := 0; i < width; i++ {
			record := domain.TaskRecord{
				"id":       fmt.Sprintf("T%d_%d", layer, i),
				"duration": float64((layer*7+i*3)%5 + 1),
			}
			if layer > 0 {
				record["dependencies"] = []any{
					fmt.Sprintf("T%d_%d", layer-1, i),
					fmt.Sprintf("T%d_%d", layer-1, (i+1)%width),
				}
			}
			records = append(records, record)
		}
	}

	result, err := Analyze(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Tasks) != width*depth {
		t.Fatalf("expected %d tasks, got %d", width*depth, len(result.Tasks))
	}

	critical := 0
	var maxEF float64
	for _, task := range result.Tasks {
		if task.Slack < -Tolerance {
			t.Fatalf("task %s has negative slack %v", task.ID, task.Slack)
		}
		if task.Critical {
			critical++
		}
		if task.EF > maxEF {
			maxEF = task.EF
		}
	}
	if critical == 0 {
		t.Error("expected at least one critical task")
	}
	if maxEF != result.ProjectDuration {
		t.Errorf("project duration %v != max EF %v", result.ProjectDuration, maxEF)
	}

	// Каждая задача ровно в одном событии
	seen := make(map[string]int)
	for _, node := range result.Nodes {
		for _, m := range node.Members {
			seen[m]++
		}
	}
	for _, task := range result.Tasks {
		if seen[task.ID] != 1 {
			t.Errorf("task %s belongs to %d nodes", task.ID, seen[task.ID])
		}
	}
}

func TestEventLabel(t *testing.T) {
	if got := EventLabel(nil); got != "START" {
		t.Errorf("expected START, got %q", got)
	}
	preds := []string{"C", "A", "B"}
	if got := EventLabel(preds); got != "after{A,B,C}" {
		t.Errorf("expected after{A,B,C}, got %q", got)
	}
	if preds[0] != "C" {
		t.Error("EventLabel should not modify its argument")
	}
}
