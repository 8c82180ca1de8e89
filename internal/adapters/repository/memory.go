package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lizgehret/q2-fmt/internal/domain/types"
)

const defaultCapacity = 64

// MemoryStore is an in-memory Store. Reads of the full listing go through
// an immutable snapshot rebuilt lazily after writes.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]types.RunReport
	capacity int

	snapshot atomic.Pointer[[]types.RunReport]
}

// NewMemoryStore constructs an empty registry.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.byID = make(map[string]types.RunReport, s.capacity)
	return s
}

// Put implements Store.Put.
func (s *MemoryStore) Put(ctx context.Context, r types.RunReport) error { //nolint:gocritic // hugeParam: stored by value
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(r.JobID) == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.JobID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.JobID)
	}
	s.byID[r.JobID] = cloneReport(r)
	s.snapshot.Store(nil)
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, jobID string) (types.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[jobID]
	if !ok {
		return types.RunReport{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return cloneReport(r), nil
}

// List implements Store.List.
func (s *MemoryStore) List(_ context.Context) []types.RunReport {
	snap := s.snapshot.Load()
	if snap == nil {
		snap = s.publishSnapshot()
	}
	out := make([]types.RunReport, len(*snap))
	for i, r := range *snap {
		out[i] = cloneReport(r)
	}
	return out
}

func (s *MemoryStore) publishSnapshot() *[]types.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]types.RunReport, 0, len(s.byID))
	for _, r := range s.byID {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].JobID < runs[j].JobID })
	s.snapshot.Store(&runs)
	return &runs
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Outcomes implements Store.Outcomes.
func (s *MemoryStore) Outcomes(_ context.Context) map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for _, r := range s.byID {
		out[r.Outcome]++
	}
	return out
}

func cloneReport(r types.RunReport) types.RunReport { //nolint:gocritic // hugeParam
	r.Timepoints = append([]types.GroupSummary(nil), r.Timepoints...)
	r.References = append([]types.GroupSummary(nil), r.References...)
	return r
}
