package store

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"
)

// Store persists ledger state.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Load returns every persisted record.
	Load(ctx context.Context) (*Snapshot, error)

	// Commit applies all writes in the batch in one transaction.
	Commit(ctx context.Context, batch *Batch) error

	// Events returns the event log in emission order. A zero tokenID
	// returns events for every token.
	Events(ctx context.Context, tokenID uint64) ([]EventRecord, error)

	// Close releases the store.
	Close() error
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu       sync.RWMutex
	closed   bool
	meta     Meta
	tokens   map[uint64]TokenRecord
	balances map[string]BalanceRecord
	pools    map[uint64]PoolRecord
	holders  map[string]HolderRecord
	listings map[uint64]ListingRecord
	streams  map[uint64]StreamRecord
	accounts map[string]AccountRecord
	events   []EventRecord
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tokens:   make(map[uint64]TokenRecord),
		balances: make(map[string]BalanceRecord),
		pools:    make(map[uint64]PoolRecord),
		holders:  make(map[string]HolderRecord),
		listings: make(map[uint64]ListingRecord),
		streams:  make(map[uint64]StreamRecord),
		accounts: make(map[string]AccountRecord),
	}
}

// tokenKey encodes a token id as an 8-byte big-endian key for sorted storage.
func tokenKey(id uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, id)
	return k
}

// holderKey is tokenKey(id) followed by the holder principal, so a cursor
// prefix scan on tokenKey(id) visits every holder of a token.
func holderKey(id uint64, holder string) []byte {
	k := make([]byte, 8+len(holder))
	binary.BigEndian.PutUint64(k, id)
	copy(k[8:], holder)
	return k
}

// Load returns a copy of every stored record, sorted by key.
func (s *MemStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	snap := &Snapshot{Meta: s.meta}
	for _, t := range s.tokens {
		snap.Tokens = append(snap.Tokens, t)
	}
	sort.Slice(snap.Tokens, func(i, j int) bool { return snap.Tokens[i].ID < snap.Tokens[j].ID })

	for _, k := range sortedKeys(s.balances) {
		snap.Balances = append(snap.Balances, s.balances[k])
	}
	for _, p := range s.pools {
		snap.Pools = append(snap.Pools, p)
	}
	sort.Slice(snap.Pools, func(i, j int) bool { return snap.Pools[i].TokenID < snap.Pools[j].TokenID })

	for _, k := range sortedKeys(s.holders) {
		snap.Holders = append(snap.Holders, s.holders[k])
	}
	for _, l := range s.listings {
		snap.Listings = append(snap.Listings, l)
	}
	sort.Slice(snap.Listings, func(i, j int) bool { return snap.Listings[i].TokenID < snap.Listings[j].TokenID })

	for _, st := range s.streams {
		snap.Streams = append(snap.Streams, st)
	}
	sort.Slice(snap.Streams, func(i, j int) bool { return snap.Streams[i].TokenID < snap.Streams[j].TokenID })

	for _, k := range sortedKeys(s.accounts) {
		snap.Accounts = append(snap.Accounts, s.accounts[k])
	}
	return snap, nil
}

// Commit applies the batch under a single lock.
func (s *MemStore) Commit(ctx context.Context, batch *Batch) error {
	if batch == nil {
		return ErrNilParam
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if batch.Meta != nil {
		s.meta = *batch.Meta
	}
	for _, t := range batch.Tokens {
		s.tokens[t.ID] = t
	}
	for _, b := range batch.Balances {
		k := string(holderKey(b.TokenID, b.Holder))
		if b.Amount == 0 {
			delete(s.balances, k)
			continue
		}
		s.balances[k] = b
	}
	for _, p := range batch.Pools {
		s.pools[p.TokenID] = p
	}
	for _, h := range batch.Holders {
		s.holders[string(holderKey(h.TokenID, h.Holder))] = h
	}
	for _, l := range batch.Listings {
		s.listings[l.TokenID] = l
	}
	for _, id := range batch.DeletedListings {
		delete(s.listings, id)
	}
	for _, st := range batch.Streams {
		s.streams[st.TokenID] = st
	}
	for _, a := range batch.Accounts {
		if a.Balance == 0 {
			delete(s.accounts, a.Principal)
			continue
		}
		s.accounts[a.Principal] = a
	}
	s.events = append(s.events, batch.Events...)
	return nil
}

// Events returns stored events in emission order.
func (s *MemStore) Events(ctx context.Context, tokenID uint64) ([]EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []EventRecord
	for _, e := range s.events {
		if tokenID == 0 || e.TokenID == tokenID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Close marks the store closed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
