package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
	"github.com/dmitrijs2005/drawkeeper/internal/dbx"
	"github.com/dmitrijs2005/drawkeeper/internal/server/models"
	"github.com/dmitrijs2005/drawkeeper/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/drawkeeper/internal/server/translation"
)

// --- drawing repository ---

type fakeDrawingRepo struct {
	mu        sync.Mutex
	rows      map[string]models.Drawing
	history   map[string][]models.State
	saves     int
	createErr error
	deleteErr error
	now       func() time.Time
}

func newFakeDrawingRepo() *fakeDrawingRepo {
	return &fakeDrawingRepo{
		rows:    map[string]models.Drawing{},
		history: map[string][]models.State{},
		now:     func() time.Time { return testNow },
	}
}

func (r *fakeDrawingRepo) seed(d models.Drawing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Version == 0 {
		d.Version = 1
	}
	r.rows[d.ID] = d
}

func (r *fakeDrawingRepo) get(id string) models.Drawing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *fakeDrawingRepo) Create(ctx context.Context, d *models.Drawing) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d.Version = 1
	r.rows[d.ID] = *d
	r.history[d.ID] = append(r.history[d.ID], d.State)
	return nil
}

func (r *fakeDrawingRepo) Update(ctx context.Context, id string, fn drawings.MutateFunc) (*models.Drawing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	d := cur
	changed, err := fn(&d)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &cur, nil
	}
	if cur.URN != "" {
		d.URN = cur.URN
	}
	d.Version = cur.Version + 1
	d.UpdatedAt = r.now()
	r.rows[id] = d
	r.saves++
	if h := r.history[id]; len(h) == 0 || h[len(h)-1] != d.State {
		r.history[id] = append(h, d.State)
	}
	out := d
	return &out, nil
}

func (r *fakeDrawingRepo) GetByID(ctx context.Context, id string) (*models.Drawing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &d, nil
}

func (r *fakeDrawingRepo) GetByIDForOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

func (r *fakeDrawingRepo) GetByURN(ctx context.Context, urn string) (*models.Drawing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.rows {
		if d.URN == urn {
			return &d, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeDrawingRepo) Delete(ctx context.Context, ownerID, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.rows[id]
	if !ok || d.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeDrawingRepo) List(ctx context.Context, ownerID string, f drawings.Filter, limit int) ([]*models.Drawing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Drawing
	for _, d := range r.rows {
		if d.OwnerID != ownerID || (f.State != "" && d.State != f.State) || (f.ProjectID != "" && d.ProjectID != f.ProjectID) {
			continue
		}
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeDrawingRepo) ListStuck(ctx context.Context, state models.State, before time.Time, limit int) ([]*models.Drawing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Drawing
	for _, d := range r.rows {
		if d.State == state && d.UpdatedAt.Before(before) {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeRepoManager struct {
	repo *fakeDrawingRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Drawings(dbx.DBTX) drawings.Repository        { return m.repo }

// --- blob store ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	putErr  error
	getErr  error
	delErr  error
	deleted []string
	ttl     time.Duration
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	b, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.ttl = ttl
	return "https://blob.local/" + key, nil
}

// --- translation service ---

type fakeAPI struct {
	mu sync.Mutex

	bucketErr   error
	beginErr    error
	transferErr error
	finalizeErr error
	submitErr   error
	manifest    *translation.Manifest
	manifestErr error

	calls       []string
	parts       int
	transferred []byte
	formats     []translation.OutputFormat
}

func (a *fakeAPI) record(call string) {
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
}

func (a *fakeAPI) Authenticate(ctx context.Context) (translation.Token, error) {
	a.record("authenticate")
	return translation.Token{AccessToken: "tok", ExpiresAt: testNow.Add(time.Hour)}, nil
}

func (a *fakeAPI) EnsureBucket(ctx context.Context, token, bucketKey string) error {
	a.record("ensure_bucket")
	return a.bucketErr
}

func (a *fakeAPI) BeginUpload(ctx context.Context, token, bucketKey, objectKey string, parts int) (*translation.UploadSession, error) {
	a.record("begin_upload")
	a.parts = parts
	if a.beginErr != nil {
		return nil, a.beginErr
	}
	urls := make([]string, parts)
	for i := range urls {
		urls[i] = "https://s3.local/part"
	}
	return &translation.UploadSession{UploadKey: "uk", URLs: urls}, nil
}

func (a *fakeAPI) Transfer(ctx context.Context, urls []string, data []byte) error {
	a.record("transfer")
	a.transferred = data
	return a.transferErr
}

func (a *fakeAPI) FinalizeUpload(ctx context.Context, token, bucketKey, objectKey, uploadKey string) (string, error) {
	a.record("finalize_upload")
	if a.finalizeErr != nil {
		return "", a.finalizeErr
	}
	return "urn:adsk.objects:os.object:" + bucketKey + "/" + objectKey, nil
}

func (a *fakeAPI) SubmitJob(ctx context.Context, token, urn string, formats []translation.OutputFormat) error {
	a.record("submit_job")
	a.formats = formats
	return a.submitErr
}

func (a *fakeAPI) Manifest(ctx context.Context, token, urn string) (*translation.Manifest, error) {
	a.record("manifest")
	if a.manifestErr != nil {
		return nil, a.manifestErr
	}
	return a.manifest, nil
}

func (a *fakeAPI) callCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == name {
			n++
		}
	}
	return n
}

// --- credentials and queue ---

type fakeCreds struct {
	err         error
	invalidated int
}

func (c *fakeCreds) Token(ctx context.Context) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return "tok", nil
}

func (c *fakeCreds) Invalidate() { c.invalidated++ }

type fakeQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *fakeQueue) EnqueueSubmit(ctx context.Context, drawingID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, drawingID)
	return nil
}

var errBoom = errors.New("boom")
