package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/runner"
	"github.com/shaiso/Critpath/internal/telemetry"
)

const chainTasks = `[
	{"id": "A", "duration": 2},
	{"id": "B", "duration": 3, "dependencies": ["A"]},
	{"id": "C", "duration": 4, "dependencies": ["B"]}
]`

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []mq.AnalysisRequestedPayload
}

func (p *recordingPublisher) PublishAnalysisRequested(_ context.Context, payload mq.AnalysisRequestedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

type testServer struct {
	mux   *http.ServeMux
	store *repo.MemoryStore
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	store := repo.NewMemoryStore()
	cfg.Projects = store.Projects
	cfg.Analyses = store.Analyses
	if cfg.Runner == nil && cfg.Publisher == nil {
		cfg.Runner = runner.New(runner.Config{Analyses: store.Analyses})
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	return &testServer{mux: mux, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func (s *testServer) createProject(t *testing.T, body string) ProjectResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/projects", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[dataEnvelope[ProjectResponse]](t, rec).Data
}

func TestAnalyze_Success(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodPost, "/api/v1/analyze", `{"tasks": `+chainTasks+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	result := decode[dataEnvelope[domain.Result]](t, rec).Data
	if result.ProjectDuration != 9 {
		t.Errorf("expected project duration 9, got %v", result.ProjectDuration)
	}
	if len(result.Tasks) != 3 || len(result.Nodes) != 4 {
		t.Errorf("expected 3 tasks and 4 nodes, got %d and %d", len(result.Tasks), len(result.Nodes))
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		code    ErrorCode
		message string
	}{
		{
			name:    "validation",
			body:    `{"tasks": [{"id": "A", "duration": -1}]}`,
			status:  http.StatusBadRequest,
			code:    ErrCodeValidationFailed,
			message: "Task A: 'duration' must be >= 0.",
		},
		{
			name:    "cycle",
			body:    `{"tasks": [{"id": "A", "duration": 1, "dependencies": ["B"]}, {"id": "B", "duration": 1, "dependencies": ["A"]}]}`,
			status:  http.StatusBadRequest,
			code:    ErrCodeCycleDetected,
			message: "Cycle detected in dependencies",
		},
		{
			name:    "missing tasks",
			body:    `{}`,
			status:  http.StatusBadRequest,
			code:    ErrCodeValidationFailed,
			message: "Input must be a non-empty list of task objects",
		},
		{
			name:    "tasks not a list",
			body:    `{"tasks": "A"}`,
			status:  http.StatusBadRequest,
			code:    ErrCodeValidationFailed,
			message: "Input must be a non-empty list of task objects",
		},
		{
			name:    "malformed body",
			body:    `{"tasks": [`,
			status:  http.StatusBadRequest,
			code:    ErrCodeBadRequest,
			message: "invalid request body",
		},
		{
			name:    "trailing data",
			body:    `{"tasks": [{"id": "A", "duration": 1}]} garbage`,
			status:  http.StatusBadRequest,
			code:    ErrCodeBadRequest,
			message: "invalid request body",
		},
	}

	s := newTestServer(t, Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/analyze", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if resp.Error.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Error.Code)
			}
			if resp.Error.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Error.Message)
			}
		})
	}
}

func TestAnalyze_CycleListsTasks(t *testing.T) {
	s := newTestServer(t, Config{})

	body := `{"tasks": [
		{"id": "A", "duration": 1},
		{"id": "B", "duration": 1, "dependencies": ["A", "C"]},
		{"id": "C", "duration": 1, "dependencies": ["B"]}
	]}`
	rec := s.do(t, http.MethodPost, "/api/v1/analyze", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	detail := decode[ErrorResponse](t, rec).Error
	if len(detail.Tasks) != 2 || detail.Tasks[0] != "B" || detail.Tasks[1] != "C" {
		t.Errorf("expected tasks [B C], got %v", detail.Tasks)
	}
}

func TestErrorCode_Status(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeValidationFailed: http.StatusBadRequest,
		ErrCodeCycleDetected:    http.StatusBadRequest,
		ErrCodeNotFound:         http.StatusNotFound,
		ErrCodeConflict:         http.StatusConflict,
		ErrCodePayloadTooLarge:  http.StatusRequestEntityTooLarge,
		ErrCodeInvalidState:     http.StatusUnprocessableEntity,
		ErrCodeInternalError:    http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := code.Status(); got != want {
			t.Errorf("%s: expected %d, got %d", code, want, got)
		}
	}
}

func TestAnalyze_TooManyTasks(t *testing.T) {
	s := newTestServer(t, Config{MaxTasks: 2})

	rec := s.do(t, http.MethodPost, "/api/v1/analyze", `{"tasks": `+chainTasks+`}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Error.Code != ErrCodePayloadTooLarge {
		t.Errorf("expected PAYLOAD_TOO_LARGE, got %s", resp.Error.Code)
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, Config{})

	body := `{"tasks": [], "pad": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := s.do(t, http.MethodPost, "/api/v1/analyze", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestProjects_CRUD(t *testing.T) {
	s := newTestServer(t, Config{})

	created := s.createProject(t, `{"name": " Bridge ", "tasks": `+chainTasks+`}`)
	if created.Name != "Bridge" || created.TaskCount != 3 || created.Timezone != "UTC" {
		t.Errorf("unexpected project: %+v", created)
	}

	path := "/api/v1/projects/" + created.ID.String()

	rec := s.do(t, http.MethodPut, path, `{"name": "Tunnel"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if got := decode[dataEnvelope[ProjectResponse]](t, rec).Data; got.Name != "Tunnel" {
		t.Errorf("expected name Tunnel, got %q", got.Name)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/projects", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if list := decode[dataEnvelope[[]ProjectResponse]](t, rec).Data; len(list) != 1 {
		t.Errorf("expected 1 project, got %d", len(list))
	}

	if rec := s.do(t, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestProjects_Validation(t *testing.T) {
	s := newTestServer(t, Config{})

	if rec := s.do(t, http.MethodPost, "/api/v1/projects", `{"name": "  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty name: expected 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/projects", `{"name": "x", "tasks": {"id": "A"}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("tasks object: expected 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/projects/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/v1/projects?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", rec.Code)
	}
}

func TestProjects_Tasks(t *testing.T) {
	s := newTestServer(t, Config{})
	project := s.createProject(t, `{"name": "p"}`)
	path := "/api/v1/projects/" + project.ID.String() + "/tasks"

	rec := s.do(t, http.MethodGet, path, "")
	if tasks := decode[dataEnvelope[[]map[string]any]](t, rec).Data; len(tasks) != 0 {
		t.Errorf("expected empty task list, got %v", tasks)
	}

	// Некорректные задачи сохраняются как есть и отклоняются только при анализе
	rec = s.do(t, http.MethodPut, path, `{"tasks": [{"id": "A"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("set tasks: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, path, "")
	tasks := decode[dataEnvelope[[]map[string]any]](t, rec).Data
	if len(tasks) != 1 || tasks[0]["id"] != "A" {
		t.Errorf("unexpected tasks: %v", tasks)
	}
}

func TestProjects_Snapshots(t *testing.T) {
	s := newTestServer(t, Config{})
	project := s.createProject(t, `{"name": "p"}`)
	path := "/api/v1/projects/" + project.ID.String() + "/snapshots"

	rec := s.do(t, http.MethodPut, path, `{"cron": "0 9 * * 1-5", "timezone": "UTC"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[dataEnvelope[ProjectResponse]](t, rec).Data
	if got.SnapshotCron != "0 9 * * 1-5" || got.NextSnapshotAt == nil {
		t.Errorf("snapshots not configured: %+v", got)
	}

	if rec := s.do(t, http.MethodPut, path, `{"cron": "whenever"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid cron: expected 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, path, `{"cron": "0 9 * * *", "timezone": "Mars/Olympus"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid timezone: expected 400, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, path, `{"cron": ""}`)
	got = decode[dataEnvelope[ProjectResponse]](t, rec).Data
	if got.SnapshotCron != "" || got.NextSnapshotAt != nil {
		t.Errorf("snapshots should be disabled: %+v", got)
	}
}

func TestAnalyses_InlineExecution(t *testing.T) {
	s := newTestServer(t, Config{})
	project := s.createProject(t, `{"name": "p", "tasks": `+chainTasks+`}`)
	base := "/api/v1/projects/" + project.ID.String() + "/analyses"

	rec := s.do(t, http.MethodPost, base, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	analysis := decode[dataEnvelope[AnalysisResponse]](t, rec).Data
	if analysis.Status != string(domain.AnalysisStatusSucceeded) {
		t.Fatalf("expected SUCCEEDED, got %s", analysis.Status)
	}
	if analysis.Result == nil || analysis.Result.ProjectDuration != 9 {
		t.Errorf("unexpected result: %+v", analysis.Result)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/analyses/"+analysis.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get analysis: expected 200, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, base+"?status=SUCCEEDED", "")
	if list := decode[dataEnvelope[[]AnalysisResponse]](t, rec).Data; len(list) != 1 {
		t.Errorf("expected 1 analysis, got %d", len(list))
	}
	if rec := s.do(t, http.MethodGet, base+"?status=DONE", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: expected 400, got %d", rec.Code)
	}
}

func TestAnalyses_FailedAnalysisIsStored(t *testing.T) {
	s := newTestServer(t, Config{})
	project := s.createProject(t, `{"name": "p", "tasks": [{"id": "A", "duration": 1, "dependencies": ["A"]}]}`)

	rec := s.do(t, http.MethodPost, "/api/v1/projects/"+project.ID.String()+"/analyses", "{}")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	analysis := decode[dataEnvelope[AnalysisResponse]](t, rec).Data
	if analysis.Status != string(domain.AnalysisStatusFailed) {
		t.Fatalf("expected FAILED, got %s", analysis.Status)
	}
	if analysis.ErrorKind != "validation" || analysis.Error != "Task A: cannot depend on itself." {
		t.Errorf("unexpected error: %s %q", analysis.ErrorKind, analysis.Error)
	}
}

func TestAnalyses_Queued(t *testing.T) {
	pub := &recordingPublisher{}
	s := newTestServer(t, Config{Publisher: pub})
	project := s.createProject(t, `{"name": "p", "tasks": `+chainTasks+`}`)
	base := "/api/v1/projects/" + project.ID.String() + "/analyses"

	rec := s.do(t, http.MethodPost, base, `{"idempotency_key": "k1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	first := decode[dataEnvelope[AnalysisResponse]](t, rec).Data
	if first.Status != string(domain.AnalysisStatusQueued) {
		t.Errorf("expected QUEUED, got %s", first.Status)
	}
	if len(pub.payloads) != 1 || pub.payloads[0].AnalysisID != first.ID {
		t.Errorf("expected analysis.requested for %s, got %+v", first.ID, pub.payloads)
	}

	// Повтор с тем же ключом возвращает существующий анализ
	rec = s.do(t, http.MethodPost, base, `{"idempotency_key": "k1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if second := decode[dataEnvelope[AnalysisResponse]](t, rec).Data; second.ID != first.ID {
		t.Errorf("expected same analysis %s, got %s", first.ID, second.ID)
	}
	if len(pub.payloads) != 1 {
		t.Errorf("duplicate should not be published, got %d", len(pub.payloads))
	}
}

func TestAnalyses_NotFound(t *testing.T) {
	s := newTestServer(t, Config{})

	if rec := s.do(t, http.MethodGet, "/api/v1/analyses/00000000-0000-0000-0000-000000000001", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/projects/00000000-0000-0000-0000-000000000001/analyses", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestLegacy_Health(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"ok":true}` {
		t.Errorf("unexpected body %s", got)
	}
}

func TestLegacy_Tasks(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodGet, "/api/tasks", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `[]` {
		t.Errorf("expected empty list, got %s", got)
	}

	rec = s.do(t, http.MethodPost, "/api/tasks", `{"tasks": `+chainTasks+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if msg := decode[map[string]string](t, rec); msg["message"] != "Tasks updated" {
		t.Errorf("unexpected response %v", msg)
	}

	rec = s.do(t, http.MethodGet, "/api/tasks", "")
	if tasks := decode[[]map[string]any](t, rec); len(tasks) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(tasks))
	}

	// Без поля tasks список очищается
	s.do(t, http.MethodPost, "/api/tasks", `{}`)
	rec = s.do(t, http.MethodGet, "/api/tasks", "")
	if tasks := decode[[]map[string]any](t, rec); len(tasks) != 0 {
		t.Errorf("expected empty list, got %d", len(tasks))
	}
}

func TestLegacy_Analyze(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodPost, "/api/analyze", `{"tasks": `+chainTasks+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]domain.Result](t, rec)
	if resp["result"].ProjectDuration != 9 {
		t.Errorf("expected project duration 9, got %v", resp["result"].ProjectDuration)
	}

	rec = s.do(t, http.MethodPost, "/api/analyze", `{"tasks": [{"id": "A", "duration": 1}, {"id": "A", "duration": 2}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decode[map[string]string](t, rec); resp["error"] != "Duplicate task ids found: A" {
		t.Errorf("unexpected error %q", resp["error"])
	}
}

func TestTaskListState_Copies(t *testing.T) {
	state := NewTaskListState()
	tasks := []domain.TaskRecord{{"id": "A", "duration": 1.0, "dependencies": []any{}}}
	state.Set(tasks)

	tasks[0]["id"] = "changed"
	got := state.Get()
	if got[0]["id"] != "A" {
		t.Errorf("state should hold a copy, got %v", got[0]["id"])
	}

	got[0]["id"] = "mutated"
	if state.Get()[0]["id"] != "A" {
		t.Error("Get should return a copy")
	}
}

func TestMiddleware_CapturesStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := Chain(Logging(logger), Metrics())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "nope")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected logged status 404, got %s", buf.String())
	}
}

func TestLogging_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var inner *slog.Logger
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = telemetry.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("expected request id echoed, got %q", rec.Header().Get(RequestIDHeader))
	}
	if inner == nil || inner == slog.Default() {
		t.Fatal("expected request logger in context")
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("expected request_id in log, got %s", buf.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected generated request id")
	}
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
