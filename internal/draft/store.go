package draft

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chalk-edu/chalk/internal/models"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrNotOwner      = errors.New("draft belongs to another user")
)

type entry struct {
	draft     *Draft
	expiresAt time.Time
}

// Store keeps drafts in memory, one owner each. Entries expire ttl after
// their last use.
type Store struct {
	mu     sync.Mutex
	drafts map[string]*entry
	ttl    time.Duration
	now    func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		drafts: make(map[string]*entry),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Create starts a new empty draft for ownerID
func (s *Store) Create(ownerID, title string) *Draft {
	d := New(uuid.NewString(), ownerID, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	d.CreatedAt, d.UpdatedAt = now, now
	s.drafts[d.ID] = &entry{draft: d, expiresAt: now.Add(s.ttl)}
	return d
}

// lookup must be called with s.mu held
func (s *Store) lookup(id, ownerID string) (*entry, error) {
	e, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(s.drafts, id)
		return nil, ErrDraftNotFound
	}
	if e.draft.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return e, nil
}

func (s *Store) Get(id, ownerID string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	e.expiresAt = s.now().Add(s.ttl)
	return e.draft, nil
}

// Apply dispatches a against the stored draft and stores the result. The
// stored draft is unchanged when dispatch fails.
func (s *Store) Apply(id, ownerID string, a Action) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	next, err := Dispatch(e.draft, a)
	if err != nil {
		return nil, err
	}
	s.replace(e, next)
	return next, nil
}

// ApplyRequest resolves req against the stored draft and applies it under the
// same lock, so default positions come from the draft being mutated
func (s *Store) ApplyRequest(id, ownerID string, req Request, exercise *models.Exercise) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	a, err := req.ToAction(e.draft, exercise)
	if err != nil {
		return nil, err
	}
	next, err := Dispatch(e.draft, a)
	if err != nil {
		return nil, err
	}
	s.replace(e, next)
	return next, nil
}

// Delete discards a draft
func (s *Store) Delete(id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id, ownerID); err != nil {
		return err
	}
	delete(s.drafts, id)
	return nil
}

// replace must be called with s.mu held
func (s *Store) replace(e *entry, next *Draft) {
	now := s.now()
	if next != e.draft {
		next.UpdatedAt = now
	}
	e.draft = next
	e.expiresAt = now.Add(s.ttl)
}

// ListByOwner returns the live drafts of ownerID, most recently changed first
func (s *Store) ListByOwner(ownerID string) []*Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []*Draft
	for _, e := range s.drafts {
		if e.draft.OwnerID == ownerID && !now.After(e.expiresAt) {
			out = append(out, e.draft)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Sweep evicts expired drafts and returns how many were removed
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.drafts {
		if now.After(e.expiresAt) {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// RunJanitor sweeps every interval until ctx is done
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(evicted int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
