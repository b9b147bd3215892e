// Package memory keeps process-local state. Nothing here survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"telegram-phone-sales/internal/domain/model"
	"telegram-phone-sales/internal/domain/ports/repository"
)

var _ repository.DialogStateStore = (*DialogStateStore)(nil)

type entry struct {
	mu      sync.Mutex
	state   *model.DialogState
	seen    time.Time
	evicted bool
}

// DialogStateStore is an in-memory registry of dialog states with one lock per participant.
// The map lock is only held to find or create an entry; the entry lock guards the state.
type DialogStateStore struct {
	mu      sync.Mutex
	entries map[int64]*entry
	now     func() time.Time
}

func NewDialogStateStore() *DialogStateStore {
	return &DialogStateStore{entries: make(map[int64]*entry), now: time.Now}
}

// lock returns the participant's entry, created on first use, with its lock held.
// An entry evicted between lookup and lock is retried, so callers never see a detached state.
func (s *DialogStateStore) lock(tgID int64) *entry {
	for {
		s.mu.Lock()
		e, ok := s.entries[tgID]
		if !ok {
			e = &entry{state: model.NewDialogState()}
			s.entries[tgID] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.evicted {
			e.seen = s.now()
			return e
		}
		e.mu.Unlock()
	}
}

func (s *DialogStateStore) GetOrCreate(ctx context.Context, tgID int64) (model.DialogState, error) {
	if err := ctx.Err(); err != nil {
		return model.DialogState{}, err
	}
	e := s.lock(tgID)
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

func (s *DialogStateStore) Update(ctx context.Context, tgID int64, fn func(st *model.DialogState) error) (model.DialogState, error) {
	if err := ctx.Err(); err != nil {
		return model.DialogState{}, err
	}
	e := s.lock(tgID)
	defer e.mu.Unlock()
	if err := fn(e.state); err != nil {
		return e.state.Clone(), err
	}
	return e.state.Clone(), nil
}

func (s *DialogStateStore) Reset(ctx context.Context, tgID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := s.lock(tgID)
	defer e.mu.Unlock()
	e.state.Reset()
	return nil
}

// Len reports how many participants have a state record.
func (s *DialogStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// EvictIdle drops the states of participants not seen since before and returns their ids.
// Entries locked by an in-flight message are skipped.
func (s *DialogStateStore) EvictIdle(ctx context.Context, before time.Time) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []int64
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.seen.Before(before) {
			e.evicted = true
			delete(s.entries, id)
			evicted = append(evicted, id)
		}
		e.mu.Unlock()
	}
	return evicted, nil
}
