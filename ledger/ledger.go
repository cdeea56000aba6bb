// Package ledger implements the accounting core of a music-rights ledger:
// token registry, fractional share balances, royalty pools, a whole-token
// marketplace and the oracle gateway that records streaming data.
//
// A Ledger is the single owner of all state. Operations are applied one at
// a time; each one validates against current state, plans its writes,
// commits them to the Store in one transaction and only then updates memory.
// A rejected or failed operation leaves state untouched.
package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/bitfsorg/libroyalty-go/store"
)

// Genesis is the deployment-time configuration of a new ledger.
type Genesis struct {
	Owner  Principal // contract owner; mints tokens and manages the oracle
	Oracle Principal // initial oracle; may be empty until SetOracleAddress
}

// Ledger is the state owner of one music-rights ledger.
type Ledger struct {
	mu      sync.RWMutex
	store   store.Store
	log     *zap.Logger
	now     func() time.Time
	entropy io.Reader
	onEvent func(Event)

	meta     store.Meta
	registry *registry
	shares   *shareLedger
	royalty  *royaltyEngine
	market   *marketplace
	oracle   *oracleGateway
	funds    *treasury
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithEventHandler registers a callback invoked, in order, for every event
// of a committed operation.
func WithEventHandler(fn func(Event)) Option {
	return func(l *Ledger) { l.onEvent = fn }
}

func newLedger(st store.Store, opts []Option) *Ledger {
	l := &Ledger{
		store:    st,
		log:      zap.NewNop(),
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
		registry: newRegistry(),
		shares:   newShareLedger(),
		royalty:  newRoyaltyEngine(),
		market:   newMarketplace(),
		oracle:   newOracleGateway(),
		funds:    newTreasury(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init creates a new ledger in an empty store.
func Init(ctx context.Context, st store.Store, g Genesis, opts ...Option) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil store", ErrStore)
	}
	if g.Owner == "" {
		return nil, fmt.Errorf("%w: owner", ErrInvalidPrincipal)
	}

	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrStore, err)
	}
	if snap.Meta.Owner != "" {
		return nil, ErrAlreadyInitialized
	}

	l := newLedger(st, opts)
	c := newChange("init", store.Meta{Owner: string(g.Owner), Oracle: string(g.Oracle), NextTokenID: 1})
	if g.Oracle != "" {
		l.emit(c, EventOracleChanged, 0, g.Owner, g.Oracle, 0)
	}
	if err := l.commit(ctx, c); err != nil {
		return nil, err
	}
	return l, nil
}

// Open loads an existing ledger from the store.
func Open(ctx context.Context, st store.Store, opts ...Option) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil store", ErrStore)
	}
	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrStore, err)
	}
	if snap.Meta.Owner == "" {
		return nil, ErrNotInitialized
	}

	l := newLedger(st, opts)
	l.apply(&store.Batch{
		Meta:     &snap.Meta,
		Tokens:   snap.Tokens,
		Balances: snap.Balances,
		Pools:    snap.Pools,
		Holders:  snap.Holders,
		Listings: snap.Listings,
		Streams:  snap.Streams,
		Accounts: snap.Accounts,
	})
	l.log.Info("ledger opened",
		zap.String("owner", snap.Meta.Owner),
		zap.Int("tokens", len(snap.Tokens)),
		zap.Uint64("event_seq", snap.Meta.EventSeq))
	return l, nil
}

// New creates a ledger backed by an in-memory store.
func New(owner Principal, opts ...Option) (*Ledger, error) {
	return Init(context.Background(), store.NewMemStore(), Genesis{Owner: owner}, opts...)
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Close()
}

// Owner returns the contract owner.
func (l *Ledger) Owner() Principal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Principal(l.meta.Owner)
}

// begin starts a change from the current meta record.
func (l *Ledger) begin(op string) *change {
	return newChange(op, l.meta)
}

// commit persists the change and, on success, applies it to memory.
func (l *Ledger) commit(ctx context.Context, c *change) error {
	b := c.batch()
	if err := l.store.Commit(ctx, b); err != nil {
		l.log.Error("commit failed", zap.String("op", c.op), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrStore, c.op, err)
	}
	l.apply(b)

	l.log.Debug("operation committed", zap.String("op", c.op), zap.Int("events", len(b.Events)))
	for _, r := range b.Events {
		ev := eventFromRecord(r)
		l.log.Info("ledger event",
			zap.String("kind", string(ev.Kind)),
			zap.Uint64("seq", ev.Seq),
			zap.Uint64("token_id", ev.TokenID),
			zap.String("actor", string(ev.Actor)),
			zap.String("counterparty", string(ev.Counterparty)),
			zap.Uint64("amount", ev.Amount))
		if l.onEvent != nil {
			l.onEvent(ev)
		}
	}
	return nil
}

// reject logs a refused operation and returns err unchanged.
func (l *Ledger) reject(op string, caller Principal, err error) error {
	l.log.Debug("operation rejected", zap.String("op", op), zap.String("caller", string(caller)), zap.Error(err))
	return err
}

// apply hands every record of a committed batch to the component that owns it.
func (l *Ledger) apply(b *store.Batch) {
	if b.Meta != nil {
		l.meta = *b.Meta
	}
	for _, t := range b.Tokens {
		l.registry.put(t)
	}
	for _, r := range b.Balances {
		l.shares.put(r)
	}
	for _, p := range b.Pools {
		l.royalty.putPool(p)
	}
	for _, h := range b.Holders {
		l.royalty.putHolder(h)
	}
	for _, r := range b.Listings {
		l.market.put(r)
	}
	for _, id := range b.DeletedListings {
		l.market.remove(id)
	}
	for _, s := range b.Streams {
		l.oracle.put(s)
	}
	for _, a := range b.Accounts {
		l.funds.put(a)
	}
}
