package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
	"github.com/shaiso/Critpath/internal/mq"
	"github.com/shaiso/Critpath/internal/repo"
	"github.com/shaiso/Critpath/internal/runner"
)

func newTestWorker(t *testing.T) (*Worker, *repo.MemoryStore, *domain.Project) {
	t.Helper()
	store := repo.NewMemoryStore()

	now := time.Now()
	project := &domain.Project{
		ID:   uuid.New(),
		Name: "test",
		Tasks: []domain.TaskRecord{
			{"id": "A", "duration": 3.0},
			{"id": "B", "duration": 4.0, "dependencies": []any{"A"}},
		},
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Projects.Create(context.Background(), project); err != nil {
		t.Fatalf("create project: %v", err)
	}

	w := New(Config{
		Analyses:     store.Analyses,
		Runner:       runner.New(runner.Config{Analyses: store.Analyses}),
		PollInterval: 10 * time.Millisecond,
	})
	return w, store, project
}

func enqueue(t *testing.T, store *repo.MemoryStore, project *domain.Project) *domain.Analysis {
	t.Helper()
	analysis := domain.NewAnalysis(project, domain.AnalysisTriggerAPI)
	if err := store.Analyses.Create(context.Background(), analysis); err != nil {
		t.Fatalf("create analysis: %v", err)
	}
	return analysis
}

func TestNew_Defaults(t *testing.T) {
	w := New(Config{})

	if w.pollInterval != defaultPollInterval {
		t.Errorf("expected poll interval %v, got %v", defaultPollInterval, w.pollInterval)
	}
	if w.batchSize != defaultBatchSize {
		t.Errorf("expected batch size %d, got %d", defaultBatchSize, w.batchSize)
	}
	if w.concurrency != defaultConcurrency {
		t.Errorf("expected concurrency %d, got %d", defaultConcurrency, w.concurrency)
	}
	if w.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

func TestWorker_Poll(t *testing.T) {
	w, store, project := newTestWorker(t)
	first := enqueue(t, store, project)
	second := enqueue(t, store, project)

	w.poll(context.Background())

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		got, err := store.Analyses.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get analysis: %v", err)
		}
		if got.Status != domain.AnalysisStatusSucceeded {
			t.Errorf("analysis %s: expected SUCCEEDED, got %s", id, got.Status)
		}
		if got.Result.ProjectDuration != 7 {
			t.Errorf("expected project duration 7, got %v", got.Result.ProjectDuration)
		}
	}
}

func TestWorker_PollConcurrent(t *testing.T) {
	w, store, project := newTestWorker(t)
	w.concurrency = 4

	ids := make([]uuid.UUID, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, enqueue(t, store, project).ID)
	}

	w.poll(context.Background())

	for _, id := range ids {
		got, err := store.Analyses.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get analysis: %v", err)
		}
		if got.Status != domain.AnalysisStatusSucceeded {
			t.Errorf("analysis %s: expected SUCCEEDED, got %s", id, got.Status)
		}
	}
}

func TestWorker_HandleAnalysisRequested(t *testing.T) {
	w, store, project := newTestWorker(t)
	analysis := enqueue(t, store, project)

	delivery := deliveryFor(t, mq.AnalysisRequestedPayload{AnalysisID: analysis.ID, ProjectID: project.ID})
	if err := w.handleAnalysisRequested(context.Background(), delivery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := store.Analyses.GetByID(context.Background(), analysis.ID)
	if got.Status != domain.AnalysisStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", got.Status)
	}

	// Повторная доставка подтверждается без ошибки
	if err := w.handleAnalysisRequested(context.Background(), delivery); err != nil {
		t.Errorf("duplicate delivery should be acked, got %v", err)
	}
}

func TestWorker_HandleAnalysisRequested_Unknown(t *testing.T) {
	w, _, _ := newTestWorker(t)

	delivery := deliveryFor(t, mq.AnalysisRequestedPayload{AnalysisID: uuid.New()})
	if err := w.handleAnalysisRequested(context.Background(), delivery); err != nil {
		t.Errorf("unknown analysis should be acked, got %v", err)
	}
}

func TestWorker_StartStop(t *testing.T) {
	w, store, project := newTestWorker(t)
	analysis := enqueue(t, store, project)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := store.Analyses.GetByID(context.Background(), analysis.ID)
		if got.Status == domain.AnalysisStatusSucceeded {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	w.Stop()

	if !w.IsStopped() {
		t.Error("worker should be stopped")
	}
	w.Stop()
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error when starting a stopped worker")
	}
	got, _ := store.Analyses.GetByID(context.Background(), analysis.ID)
	if got.Status != domain.AnalysisStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", got.Status)
	}
}

// deliveryFor собирает доставку так, как её видит обработчик после JSON.
func deliveryFor(t *testing.T, payload any) *mq.Delivery {
	t.Helper()
	body, err := json.Marshal(mq.NewMessage(mq.MessageTypeAnalysisRequested, payload))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var msg mq.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &mq.Delivery{Message: msg}
}
