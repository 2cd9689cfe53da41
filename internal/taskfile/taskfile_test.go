package taskfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shaiso/Critpath/internal/engine"
)

func TestParse_JSONArray(t *testing.T) {
	data := `[
		{"id": "A", "duration": 3},
		{"id": "B", "duration": 2, "dependencies": ["A"]}
	]`

	records, err := Parse([]byte(data), "tasks.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if _, ok := records[0]["duration"].(json.Number); !ok {
		t.Errorf("expected json.Number duration, got %T", records[0]["duration"])
	}
}

func TestParse_JSONObject(t *testing.T) {
	data := `{"tasks": [{"id": "A", "duration": 1}]}`

	records, err := Parse([]byte(data), "project.JSON")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0]["id"] != "A" {
		t.Errorf("unexpected records: %v", records)
	}
}

func TestParse_JSONTrailingData(t *testing.T) {
	_, err := Parse([]byte(`[{"id": "A", "duration": 1}] {"id": "B"}`), "tasks.json")
	if err == nil {
		t.Error("expected error")
	}
}

func TestParse_JSONObjectWithoutTasks(t *testing.T) {
	_, err := Parse([]byte(`{"items": []}`), "tasks.json")
	if err == nil {
		t.Error("expected error")
	}
}

func TestParse_HCL(t *testing.T) {
	data := `
task "A" {
  duration = 3
}

task "B" {
  duration     = 11
  dependencies = ["A"]
}

task "C" {
  duration     = 1.5
  dependencies = ["A", "B"]
  name         = "Integration"
}
`

	records, err := Parse([]byte(data), "plan.hcl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	ids := []string{"A", "B", "C"}
	for i, id := range ids {
		if records[i]["id"] != id {
			t.Errorf("record %d: expected id %s, got %v", i, id, records[i]["id"])
		}
	}

	if records[2]["duration"] != 1.5 {
		t.Errorf("expected duration 1.5, got %v", records[2]["duration"])
	}
	deps, ok := records[2]["dependencies"].([]any)
	if !ok || len(deps) != 2 || deps[0] != "A" || deps[1] != "B" {
		t.Errorf("unexpected dependencies: %v", records[2]["dependencies"])
	}
	if records[2]["name"] != "Integration" {
		t.Errorf("unexpected name: %v", records[2]["name"])
	}

	result, err := engine.Analyze(records)
	if err != nil {
		t.Fatalf("unexpected analyze error: %v", err)
	}
	if result.ProjectDuration != 15.5 {
		t.Errorf("expected project duration 15.5, got %v", result.ProjectDuration)
	}
}

func TestParse_HCLMissingDuration(t *testing.T) {
	records, err := Parse([]byte(`task "A" {}`), "plan.hcl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = engine.Validate(records)
	if !errors.Is(err, engine.ErrMissingDuration) {
		t.Errorf("expected ErrMissingDuration, got %v", err)
	}
}

func TestParse_HCLSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`task "A" {`), "plan.hcl")
	if err == nil {
		t.Error("expected error")
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte(`A,3`), "tasks.csv")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte(`[{"id": "A", "duration": 2}]`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
