// Package memory is an in-process implementation of the record store, used
// by tests and by STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

// Store holds every table behind one mutex so that version allocation is a
// single read-modify-write, like the SQL transaction it stands in for.
type Store struct {
	mu          sync.Mutex
	seq         int64
	now         func() time.Time
	websites    map[string]*entity.Website
	snapshots   map[string]*entity.Snapshot
	pages       map[string][]*entity.PageRecord
	failures    map[string][]*entity.PageFailure
	comparisons map[string]*storedComparison
}

type storedComparison struct {
	seq int64
	cmp entity.Comparison
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		websites:    map[string]*entity.Website{},
		snapshots:   map[string]*entity.Snapshot{},
		pages:       map[string][]*entity.PageRecord{},
		failures:    map[string][]*entity.PageFailure{},
		comparisons: map[string]*storedComparison{},
	}
}

// WithClock replaces the time source; used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Websites() *WebsiteRepo       { return &WebsiteRepo{s} }
func (s *Store) Snapshots() *SnapshotRepo     { return &SnapshotRepo{s} }
func (s *Store) Pages() *PageRecordRepo       { return &PageRecordRepo{s} }
func (s *Store) Failures() *PageFailureRepo   { return &PageFailureRepo{s} }
func (s *Store) Comparisons() *ComparisonRepo { return &ComparisonRepo{s} }

func copyWebsite(w *entity.Website) *entity.Website {
	c := *w
	if w.LastSnapshotAt != nil {
		t := *w.LastSnapshotAt
		c.LastSnapshotAt = &t
	}
	return &c
}

func copySnapshot(sn *entity.Snapshot) *entity.Snapshot {
	c := *sn
	if sn.CompletedAt != nil {
		t := *sn.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// WebsiteRepo implements repository.WebsiteRepository.
type WebsiteRepo struct{ s *Store }

func (r *WebsiteRepo) Create(_ context.Context, w *entity.Website) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.websites {
		if existing.IsActive && existing.OwnerID == w.OwnerID && existing.Domain == w.Domain {
			return repository.ErrDuplicateWebsite
		}
	}
	now := r.s.now()
	w.ID = uuid.NewString()
	w.IsActive = true
	w.CreatedAt = now
	w.UpdatedAt = now
	r.s.websites[w.ID] = copyWebsite(w)
	return nil
}

func (r *WebsiteRepo) GetByID(_ context.Context, id string) (*entity.Website, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.websites[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyWebsite(w), nil
}

func (r *WebsiteRepo) FindByDomain(_ context.Context, ownerID, domain string) (*entity.Website, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.websites {
		if w.IsActive && w.OwnerID == ownerID && w.Domain == domain {
			return copyWebsite(w), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *WebsiteRepo) List(_ context.Context, ownerID string, role entity.WebsiteRole) ([]*entity.Website, error) {
	return r.filter(func(w *entity.Website) bool {
		return w.OwnerID == ownerID && (role == "" || w.Role == role)
	}), nil
}

func (r *WebsiteRepo) ListActive(_ context.Context) ([]*entity.Website, error) {
	return r.filter(func(*entity.Website) bool { return true }), nil
}

func (r *WebsiteRepo) filter(keep func(*entity.Website) bool) []*entity.Website {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*entity.Website{}
	for _, w := range r.s.websites {
		if w.IsActive && keep(w) {
			out = append(out, copyWebsite(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Domain < out[j].Domain
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *WebsiteRepo) Deactivate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.websites[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.IsActive = false
	w.UpdatedAt = r.s.now()
	return nil
}

// SnapshotRepo implements repository.SnapshotRepository.
type SnapshotRepo struct{ s *Store }

func (r *SnapshotRepo) CreateNextVersion(_ context.Context, websiteID, ownerID, baseURL string) (*entity.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.websites[websiteID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	now := r.s.now()
	w.SnapshotCount++
	w.LastSnapshotAt = &now
	w.UpdatedAt = now

	sn := &entity.Snapshot{
		ID:          uuid.NewString(),
		WebsiteID:   websiteID,
		OwnerID:     ownerID,
		Version:     w.SnapshotCount,
		State:       entity.StatePending,
		BaseURL:     baseURL,
		CurrentStep: "Queued",
		StartedAt:   now,
		UpdatedAt:   now,
	}
	r.s.snapshots[sn.ID] = copySnapshot(sn)
	return sn, nil
}

func (r *SnapshotRepo) GetByID(_ context.Context, id string) (*entity.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sn, ok := r.s.snapshots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySnapshot(sn), nil
}

func (r *SnapshotRepo) Update(_ context.Context, sn *entity.Snapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.snapshots[sn.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.State.IsTerminal() {
		return repository.ErrSnapshotTerminal
	}
	if !stored.State.CanTransitionTo(sn.State) {
		return repository.ErrInvalidTransition
	}
	sn.UpdatedAt = r.s.now()
	r.s.snapshots[sn.ID] = copySnapshot(sn)
	return nil
}

func (r *SnapshotRepo) LatestCompleted(_ context.Context, websiteID string) (*entity.Snapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *entity.Snapshot
	for _, sn := range r.s.snapshots {
		if sn.WebsiteID != websiteID || sn.State != entity.StateCompleted {
			continue
		}
		if latest == nil || sn.Version > latest.Version {
			latest = sn
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return copySnapshot(latest), nil
}

func (r *SnapshotRepo) ListByWebsite(_ context.Context, websiteID string, limit int) ([]*entity.Snapshot, error) {
	out := r.filter(func(sn *entity.Snapshot) bool { return sn.WebsiteID == websiteID })
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SnapshotRepo) ListNonTerminal(_ context.Context) ([]*entity.Snapshot, error) {
	out := r.filter(func(sn *entity.Snapshot) bool { return !sn.State.IsTerminal() })
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (r *SnapshotRepo) filter(keep func(*entity.Snapshot) bool) []*entity.Snapshot {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*entity.Snapshot{}
	for _, sn := range r.s.snapshots {
		if keep(sn) {
			out = append(out, copySnapshot(sn))
		}
	}
	return out
}

// PageRecordRepo implements repository.PageRecordRepository.
type PageRecordRepo struct{ s *Store }

func (r *PageRecordRepo) Save(_ context.Context, rec *entity.PageRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.pages[rec.SnapshotID] {
		if existing.URL == rec.URL {
			return repository.ErrDuplicatePage
		}
	}
	rec.ID = uuid.NewString()
	c := *rec
	r.s.pages[rec.SnapshotID] = append(r.s.pages[rec.SnapshotID], &c)
	return nil
}

func (r *PageRecordRepo) ListBySnapshot(_ context.Context, snapshotID string) ([]*entity.PageRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*entity.PageRecord, 0, len(r.s.pages[snapshotID]))
	for _, p := range r.s.pages[snapshotID] {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// PageFailureRepo implements repository.PageFailureRepository.
type PageFailureRepo struct{ s *Store }

func (r *PageFailureRepo) Save(_ context.Context, f *entity.PageFailure) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.seq++
	f.ID = r.s.seq
	c := *f
	r.s.failures[f.SnapshotID] = append(r.s.failures[f.SnapshotID], &c)
	return nil
}

func (r *PageFailureRepo) ListBySnapshot(_ context.Context, snapshotID string) ([]*entity.PageFailure, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]*entity.PageFailure, 0, len(r.s.failures[snapshotID]))
	for _, f := range r.s.failures[snapshotID] {
		c := *f
		out = append(out, &c)
	}
	return out, nil
}

// ComparisonRepo implements repository.ComparisonRepository.
type ComparisonRepo struct{ s *Store }

func comparisonKey(c *entity.Comparison) string {
	return c.WebsiteID + "|" + c.BaselineSnapshotID + "|" + c.CurrentSnapshotID
}

func (r *ComparisonRepo) Upsert(_ context.Context, c *entity.Comparison) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := comparisonKey(c)
	r.s.seq++
	if existing, ok := r.s.comparisons[key]; ok {
		c.ID = existing.cmp.ID
	} else {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = r.s.now()
	r.s.comparisons[key] = &storedComparison{seq: r.s.seq, cmp: *c}
	return nil
}

func (r *ComparisonRepo) GetByID(_ context.Context, id string) (*entity.Comparison, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sc := range r.s.comparisons {
		if sc.cmp.ID == id {
			c := sc.cmp
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ComparisonRepo) ListByWebsite(_ context.Context, websiteID string, limit int) ([]*entity.Comparison, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var stored []*storedComparison
	for _, sc := range r.s.comparisons {
		if sc.cmp.WebsiteID == websiteID {
			stored = append(stored, sc)
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].seq > stored[j].seq })
	if limit > 0 && len(stored) > limit {
		stored = stored[:limit]
	}
	out := make([]*entity.Comparison, 0, len(stored))
	for _, sc := range stored {
		c := sc.cmp
		out = append(out, &c)
	}
	return out, nil
}

var (
	_ repository.WebsiteRepository     = (*WebsiteRepo)(nil)
	_ repository.SnapshotRepository    = (*SnapshotRepo)(nil)
	_ repository.PageRecordRepository  = (*PageRecordRepo)(nil)
	_ repository.PageFailureRepository = (*PageFailureRepo)(nil)
	_ repository.ComparisonRepository  = (*ComparisonRepo)(nil)
)
