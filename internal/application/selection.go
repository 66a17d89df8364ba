package application

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/turtacn/keyreg/pkg/errors"
)

// RecordLookup reports whether a record id is present in the store.
type RecordLookup interface {
	Exists(ctx context.Context, id string) bool
}

// Selection tracks the ids marked for a bulk action, independent of any filter or sort.
// Ids keep their selection order. Safe for concurrent use.
type Selection struct {
	mu    sync.RWMutex
	ids   []string
	index map[string]struct{}
	store RecordLookup
}

// NewSelection creates an empty selection resolved against store.
func NewSelection(store RecordLookup) *Selection {
	return &Selection{index: make(map[string]struct{}), store: store}
}

// Select adds id if the store holds it and reports whether id is selected afterwards.
// Selecting an id twice is a no-op.
func (s *Selection) Select(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(ctx, id)
}

// Deselect removes id.
func (s *Selection) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
}

// SelectAll adds every id the store holds, typically the ids of the current filtered
// view, and returns how many of ids ended up selected.
func (s *Selection) SelectAll(ctx context.Context, ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if s.add(ctx, id) {
			n++
		}
	}
	return n
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.index = make(map[string]struct{})
}

// Current returns the selected ids in selection order.
func (s *Selection) Current() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Resolve silently drops ids that are no longer in the store and returns the rest.
func (s *Selection) Resolve(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.ids[:0]
	for _, id := range s.ids {
		if s.store.Exists(ctx, id) {
			kept = append(kept, id)
			continue
		}
		delete(s.index, id)
	}
	s.ids = kept

	out := make([]string, len(kept))
	copy(out, kept)
	return out, nil
}

func (s *Selection) add(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.index[id]; ok {
		return true
	}
	if !s.store.Exists(ctx, id) {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// SelectionRegistry keeps one Selection per presentation session. A session that is
// not touched for the idle TTL is forgotten.
type SelectionRegistry struct {
	mu       sync.Mutex
	sessions *cache.Cache
	store    RecordLookup
}

// NewSelectionRegistry creates a registry whose selections resolve against store.
func NewSelectionRegistry(store RecordLookup, idleTTL time.Duration) *SelectionRegistry {
	return &SelectionRegistry{sessions: cache.New(idleTTL, idleTTL), store: store}
}

// Session returns the selection of session, creating it on first use.
func (r *SelectionRegistry) Session(session string) *Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	sel, ok := r.touch(session)
	if !ok {
		sel = NewSelection(r.store)
		r.sessions.SetDefault(session, sel)
	}
	return sel
}

// Lookup returns the selection of session without creating one.
func (r *SelectionRegistry) Lookup(session string) (*Selection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touch(session)
}

// Drop empties and forgets the selection of session.
func (r *SelectionRegistry) Drop(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.sessions.Get(session); ok {
		v.(*Selection).Clear()
	}
	r.sessions.Delete(session)
}

// touch restarts the idle timer of an existing session.
func (r *SelectionRegistry) touch(session string) (*Selection, bool) {
	v, ok := r.sessions.Get(session)
	if !ok {
		return nil, false
	}
	sel := v.(*Selection)
	r.sessions.SetDefault(session, sel)
	return sel, true
}
