// Package memory is a single-process implementation of the repositories.
// Transactions are serialised by one mutex and roll back by restoring a
// snapshot, which gives the same isolation as row locks for one process.
package memory

import (
	"context"
	"sync"

	"ridepool/internal/repository"
)

var _ repository.Transactor = (*Store)(nil)

type state struct {
	riders   map[string]riderRow
	requests map[string]requestRow
	vehicles map[string]vehicleRow
	pools    map[string]poolRow
	members  map[string]memberRow
	seq      int64
}

func newState() *state {
	return &state{
		riders:   make(map[string]riderRow),
		requests: make(map[string]requestRow),
		vehicles: make(map[string]vehicleRow),
		pools:    make(map[string]poolRow),
		members:  make(map[string]memberRow),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.riders {
		c.riders[k] = v
	}
	for k, v := range st.requests {
		c.requests[k] = v
	}
	for k, v := range st.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range st.pools {
		c.pools[k] = v
	}
	for k, v := range st.members {
		c.members[k] = v
	}
	c.seq = st.seq
	return c
}

// next returns a monotonically increasing insertion number used to keep
// listings stable when timestamps collide.
func (st *state) next() int64 {
	st.seq++
	return st.seq
}

// Store holds all entities in memory.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repositories returns repositories that lock the store per call. They must
// not be used from inside WithinTx.
func (s *Store) Repositories() repository.Repositories {
	return s.repos(false)
}

// WithinTx implements repository.Transactor. The whole store is locked for
// the duration of fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(ctx, s.repos(true))
}

func (s *Store) repos(inTx bool) repository.Repositories {
	b := base{s: s, inTx: inTx}
	return repository.Repositories{
		Riders:      &riderRepo{b},
		Requests:    &requestRepo{b},
		Vehicles:    &vehicleRepo{b},
		Pools:       &poolRepo{b},
		Memberships: &membershipRepo{b},
	}
}

type base struct {
	s    *Store
	inTx bool
}

// lock acquires the store mutex unless the caller already holds it through
// WithinTx, and returns the matching unlock.
func (b base) lock() func() {
	if b.inTx {
		return func() {}
	}
	b.s.mu.Lock()
	return b.s.mu.Unlock
}

func (b base) state() *state {
	return b.s.st
}
