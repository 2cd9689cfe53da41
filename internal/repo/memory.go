package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Critpath/internal/domain"
)

// MemoryStore — хранилище в памяти процесса (STORAGE=memory и тесты).
//
// Projects и Analyses разделяют одно состояние: удаление проекта
// удаляет и его анализы, как ON DELETE CASCADE в PostgreSQL.
// Все значения копируются на входе и выходе.
type MemoryStore struct {
	Projects *MemoryProjectRepo
	Analyses *MemoryAnalysisRepo

	mu       sync.RWMutex
	projects map[uuid.UUID]*domain.Project
	analyses map[uuid.UUID]*domain.Analysis
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		projects: make(map[uuid.UUID]*domain.Project),
		analyses: make(map[uuid.UUID]*domain.Analysis),
	}
	s.Projects = &MemoryProjectRepo{s: s}
	s.Analyses = &MemoryAnalysisRepo{s: s}
	return s
}

// MemoryProjectRepo — ProjectStore поверх MemoryStore.
type MemoryProjectRepo struct {
	s *MemoryStore
}

// MemoryAnalysisRepo — AnalysisStore поверх MemoryStore.
type MemoryAnalysisRepo struct {
	s *MemoryStore
}

var (
	_ ProjectStore  = (*ProjectRepo)(nil)
	_ ProjectStore  = (*MemoryProjectRepo)(nil)
	_ AnalysisStore = (*AnalysisRepo)(nil)
	_ AnalysisStore = (*MemoryAnalysisRepo)(nil)
)

// --- Projects ---

func (r *MemoryProjectRepo) Create(_ context.Context, project *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[project.ID]; ok {
		return ErrAlreadyExists
	}
	r.s.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *MemoryProjectRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneProject(p), nil
}

func (r *MemoryProjectRepo) List(_ context.Context, filter ProjectFilter) ([]domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	projects := make([]domain.Project, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		projects = append(projects, *cloneProject(p))
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return paginate(projects, filter.Limit, filter.Offset), nil
}

func (r *MemoryProjectRepo) ListDueSnapshots(_ context.Context, now time.Time, limit int) ([]domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	projects := make([]domain.Project, 0)
	for _, p := range r.s.projects {
		if p.IsSnapshotDue(now) {
			projects = append(projects, *cloneProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].NextSnapshotAt.Before(*projects[j].NextSnapshotAt)
	})
	return paginate(projects, limit, 0), nil
}

func (r *MemoryProjectRepo) Update(_ context.Context, project *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[project.ID]; !ok {
		return ErrNotFound
	}
	r.s.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *MemoryProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.projects, id)
	for aid, a := range r.s.analyses {
		if a.ProjectID == id {
			delete(r.s.analyses, aid)
		}
	}
	return nil
}

// --- Analyses ---

func (r *MemoryAnalysisRepo) Create(_ context.Context, analysis *domain.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[analysis.ProjectID]; !ok {
		return ErrNotFound
	}
	if _, ok := r.s.analyses[analysis.ID]; ok {
		return ErrAlreadyExists
	}
	if analysis.IdempotencyKey != "" {
		for _, a := range r.s.analyses {
			if a.ProjectID == analysis.ProjectID && a.IdempotencyKey == analysis.IdempotencyKey {
				return ErrAlreadyExists
			}
		}
	}
	r.s.analyses[analysis.ID] = cloneAnalysis(analysis)
	return nil
}

func (r *MemoryAnalysisRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Analysis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.analyses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAnalysis(a), nil
}

func (r *MemoryAnalysisRepo) GetByIdempotencyKey(_ context.Context, projectID uuid.UUID, key string) (*domain.Analysis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.analyses {
		if a.ProjectID == projectID && a.IdempotencyKey == key {
			return cloneAnalysis(a), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAnalysisRepo) ListByProject(_ context.Context, projectID uuid.UUID, filter AnalysisFilter) ([]domain.Analysis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	analyses := make([]domain.Analysis, 0)
	for _, a := range r.s.analyses {
		if a.ProjectID != projectID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		analyses = append(analyses, *cloneAnalysis(a))
	}
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.After(analyses[j].CreatedAt)
	})
	return paginate(analyses, filter.Limit, filter.Offset), nil
}

func (r *MemoryAnalysisRepo) ListQueued(_ context.Context, limit int) ([]domain.Analysis, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	analyses := make([]domain.Analysis, 0)
	for _, a := range r.s.analyses {
		if a.Status == domain.AnalysisStatusQueued {
			analyses = append(analyses, *cloneAnalysis(a))
		}
	}
	sort.Slice(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.Before(analyses[j].CreatedAt)
	})
	return paginate(analyses, limit, 0), nil
}

func (r *MemoryAnalysisRepo) Claim(_ context.Context, id uuid.UUID) (*domain.Analysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.analyses[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != domain.AnalysisStatusQueued {
		return nil, ErrInvalidState
	}
	a.MarkRunning()
	return cloneAnalysis(a), nil
}

func (r *MemoryAnalysisRepo) Update(_ context.Context, analysis *domain.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.analyses[analysis.ID]; !ok {
		return ErrNotFound
	}
	r.s.analyses[analysis.ID] = cloneAnalysis(analysis)
	return nil
}

// --- Helpers ---

func paginate[T any](items []T, limit, offset int) []T {
	limit = limitOrDefault(limit)
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneProject(p *domain.Project) *domain.Project {
	out := *p
	out.Tasks = domain.CloneTaskRecords(p.Tasks)
	if out.Tasks == nil {
		out.Tasks = []domain.TaskRecord{}
	}
	return &out
}

// cloneAnalysis копирует анализ. Result после записи не изменяется,
// поэтому разделяется между копиями.
func cloneAnalysis(a *domain.Analysis) *domain.Analysis {
	out := *a
	out.Tasks = domain.CloneTaskRecords(a.Tasks)
	if out.Tasks == nil {
		out.Tasks = []domain.TaskRecord{}
	}
	return &out
}
