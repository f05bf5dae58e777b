package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	repos "github.com/cosmosits/questionbank-backend/internal/data/repos/questions"
	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/dbctx"
)

// In-memory doubles for the orchestrator's collaborators. Each fake exposes
// error hooks so tests can fail any single stage.

type fakePartRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*questions.QuestionPart

	createErr error
	updateErr error
	deleteErr error
	getErr    error
	listErr   error
}

var _ repos.QuestionPartRepo = (*fakePartRepo)(nil)

func newFakePartRepo() *fakePartRepo {
	return &fakePartRepo{rows: map[int64]*questions.QuestionPart{}}
}

func (f *fakePartRepo) GetByID(_ dbctx.Context, id int64) (*questions.QuestionPart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakePartRepo) GetByVectorID(_ dbctx.Context, vectorID uuid.UUID) (*questions.QuestionPart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, row := range f.rows {
		if row.VectorID != nil && *row.VectorID == vectorID {
			cp := *row
			return &cp, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (f *fakePartRepo) GetByCourseShort(_ dbctx.Context, short string) ([]*questions.QuestionPart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*questions.QuestionPart
	for id := int64(1); id <= f.nextID; id++ {
		if row, ok := f.rows[id]; ok && row.Short == short {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePartRepo) Create(_ dbctx.Context, row *questions.QuestionPart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	row.ID = f.nextID
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	cp := *row
	f.rows[row.ID] = &cp
	return nil
}

func (f *fakePartRepo) Update(_ dbctx.Context, id int64, patch map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	row, ok := f.rows[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	if v, ok := patch["vector_id"]; ok {
		vid := v.(uuid.UUID)
		row.VectorID = &vid
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakePartRepo) Delete(_ dbctx.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return pkgerrors.ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakePartRepo) ctx() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

func (f *fakePartRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeIntentRepo struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*questions.SyncIntent
	order   []uuid.UUID
	created int

	createErr error
}

var _ repos.SyncIntentRepo = (*fakeIntentRepo)(nil)

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{rows: map[uuid.UUID]*questions.SyncIntent{}}
}

func (f *fakeIntentRepo) Create(_ dbctx.Context, row *questions.SyncIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = questions.IntentOpen
	}
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	cp := *row
	f.rows[row.ID] = &cp
	f.order = append(f.order, row.ID)
	f.created++
	return nil
}

func (f *fakeIntentRepo) MarkStatus(_ dbctx.Context, id uuid.UUID, status string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[id]; ok {
		row.Status = status
		row.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (f *fakeIntentRepo) ListUnresolvedBefore(_ dbctx.Context, before time.Time, limit int) ([]*questions.SyncIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*questions.SyncIntent
	for _, id := range f.order {
		row := f.rows[id]
		if (row.Status == questions.IntentOpen || row.Status == questions.IntentCritical) && row.UpdatedAt.Before(before) {
			cp := *row
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeIntentRepo) lastStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) == 0 {
		return ""
	}
	return f.rows[f.order[len(f.order)-1]].Status
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	dim   int

	err    error
	errOnQ string // fail only when the question text matches
}

var _ EmbeddingService = (*fakeEmbedder)(nil)

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: 4} }

func (f *fakeEmbedder) EmbedQuestion(_ context.Context, in EmbeddingInput) (*EmbeddingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.errOnQ != "" && in.Question == f.errOnQ {
		return nil, fmt.Errorf("embedding backend unavailable")
	}
	vals := make([]float32, f.dim)
	for i := range vals {
		vals[i] = 0.25
	}
	return &EmbeddingResult{Values: vals, Dimension: f.dim, Model: "test-embed"}, nil
}

type fakeResolver struct {
	err error
}

var _ NamespaceResolver = (*fakeResolver)(nil)

func (f *fakeResolver) Resolve(_ context.Context, short string) (*CourseNamespace, error) {
	if f.err != nil {
		return nil, f.err
	}
	ns, err := NamespaceName("course", short)
	if err != nil {
		return nil, err
	}
	return &CourseNamespace{
		IndexName: "question-embeddings",
		IndexHost: "test-host.pinecone.io",
		Namespace: ns,
		Dimension: 4,
	}, nil
}

type fakeVectorStore struct {
	mu      sync.Mutex
	vectors map[string]map[string]any // namespace/id -> metadata
	upserts int
	deletes int

	upsertErr error
	deleteErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{vectors: map[string]map[string]any{}}
}

func vecKey(namespace, id string) string { return namespace + "/" + id }

func (f *fakeVectorStore) Upsert(_ context.Context, _, namespace, vectorID string, _ []float32, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.vectors[vecKey(namespace, vectorID)] = metadata
	return nil
}

func (f *fakeVectorStore) Delete(_ context.Context, _, namespace, vectorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.vectors, vecKey(namespace, vectorID))
	return nil
}

func (f *fakeVectorStore) Exists(_ context.Context, _, namespace, vectorID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.vectors[vecKey(namespace, vectorID)]
	return ok, nil
}

func (f *fakeVectorStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vectors)
}

func (f *fakeVectorStore) has(namespace, vectorID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.vectors[vecKey(namespace, vectorID)]
	return ok
}
