package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/deepteaching86-gif/deepreading/internal/mst"
	"github.com/deepteaching86-gif/deepreading/internal/store"
)

// memStore is an in-memory implementation of the item, session and
// response repos.
type memStore struct {
	mu        sync.Mutex
	items     map[string]*store.Item
	sessions  map[string]*store.Session
	responses []store.Response
	seq       int64

	candidatesErr error
	updateErr     error
}

func newMemStore(items ...store.Item) *memStore {
	m := &memStore{
		items:    make(map[string]*store.Item),
		sessions: make(map[string]*store.Session),
	}
	for _, it := range items {
		it := it
		if it.Status == "" {
			it.Status = store.ItemStatusActive
		}
		m.items[it.ID] = &it
	}
	return m
}

// ItemRepo

func (m *memStore) Upsert(_ context.Context, items ...store.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		it := it
		m.items[it.ID] = &it
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *memStore) Candidates(_ context.Context, f store.CandidateFilter) ([]store.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.candidatesErr != nil {
		return nil, m.candidatesErr
	}
	var out []store.Item
	for _, it := range m.items {
		if it.Status != store.ItemStatusActive || it.Stage != f.Stage || it.Panel != f.Panel {
			continue
		}
		if f.FormID > 0 && it.FormID != f.FormID {
			continue
		}
		if slices.Contains(f.Exclude, it.ID) {
			continue
		}
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExposureCount != out[j].ExposureCount {
			return out[i].ExposureCount < out[j].ExposureCount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) IncrementExposure(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return store.ErrNotFound
	}
	it.ExposureCount++
	return nil
}

func (m *memStore) List(_ context.Context, _ store.ItemFilter) ([]store.Item, error) {
	return nil, nil
}

func (m *memStore) responseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responses)
}

func (m *memStore) exposure(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].ExposureCount
}

// sessionRepo and responseRepo adapt memStore to the repos whose method
// names collide with ItemRepo.
type sessionRepo struct{ m *memStore }

func (r sessionRepo) Create(_ context.Context, s *store.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.sessions[s.ID]; ok {
		return fmt.Errorf("duplicate session %s", s.ID)
	}
	cp := *s
	cp.Status = store.SessionInProgress
	r.m.sessions[s.ID] = &cp
	return nil
}

func (r sessionRepo) Get(_ context.Context, id string) (*store.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r sessionRepo) Update(_ context.Context, s *store.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.updateErr != nil {
		return r.m.updateErr
	}
	cur, ok := r.m.sessions[s.ID]
	if !ok {
		return store.ErrNotFound
	}
	cp := *s
	cp.Status = cur.Status
	r.m.sessions[s.ID] = &cp
	return nil
}

func (r sessionRepo) Complete(_ context.Context, id string, result json.RawMessage, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	if s.Status == store.SessionCompleted {
		return store.ErrSessionClosed
	}
	s.Status = store.SessionCompleted
	s.CompletedAt = &at
	s.Result = result
	return nil
}

type responseRepo struct{ m *memStore }

func (r responseRepo) Append(_ context.Context, resp *store.Response) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.seq++
	resp.ID = r.m.seq
	resp.Sequence = r.m.seq
	r.m.responses = append(r.m.responses, *resp)
	return nil
}

func (r responseRepo) ForSession(_ context.Context, sessionID string) ([]store.Response, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []store.Response
	for _, resp := range r.m.responses {
		if resp.SessionID != sessionID {
			continue
		}
		it := r.m.items[resp.ItemID]
		resp.Params = it.Params()
		resp.Domain = it.Domain
		resp.IsPseudoword = it.IsPseudoword
		resp.FrequencyBand = it.FrequencyBand
		resp.BandSize = it.BandSize
		out = append(out, resp)
	}
	return out, nil
}

// countingRecorder counts Recorder calls.
type countingRecorder struct {
	mu          sync.Mutex
	started     int
	responses   int
	transitions []mst.Panel
	exhausted   int
	finalized   int
}

func (c *countingRecorder) SessionStarted(int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *countingRecorder) ResponseRecorded(int, bool, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses++
}

func (c *countingRecorder) StageTransition(_, to mst.Panel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transitions = append(c.transitions, to)
}

func (c *countingRecorder) PoolExhausted(int, mst.Panel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exhausted++
}

func (c *countingRecorder) SessionFinalized(int, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized++
}
