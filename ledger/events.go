package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bitfsorg/libroyalty-go/store"
)

// EventKind names a committed state transition.
type EventKind string

const (
	EventMint             EventKind = "mint"
	EventTransfer         EventKind = "transfer"
	EventDistribute       EventKind = "distribute"
	EventClaim            EventKind = "claim"
	EventList             EventKind = "list"
	EventCancelListing    EventKind = "cancel_listing"
	EventSale             EventKind = "sale"
	EventOracleChanged    EventKind = "oracle_changed"
	EventRevenuePerStream EventKind = "revenue_per_stream"
	EventStreamingData    EventKind = "streaming_data"
	EventDeposit          EventKind = "deposit"
)

// Event is an entry of the ledger's append-only event log.
type Event struct {
	ID           string // ULID, sortable by time
	Seq          uint64 // strictly increasing per ledger
	Kind         EventKind
	TokenID      uint64
	Actor        Principal
	Counterparty Principal
	Amount       uint64
	Time         time.Time
}

func eventFromRecord(r store.EventRecord) Event {
	return Event{
		ID:           r.ID,
		Seq:          r.Seq,
		Kind:         EventKind(r.Kind),
		TokenID:      r.TokenID,
		Actor:        Principal(r.Actor),
		Counterparty: Principal(r.Counterparty),
		Amount:       r.Amount,
		Time:         time.Unix(0, r.Timestamp).UTC(),
	}
}

// emit appends an event to the change. Sequence numbers come from the
// change's meta so a rejected operation consumes none.
func (l *Ledger) emit(c *change, kind EventKind, tokenID uint64, actor, counterparty Principal, amount uint64) {
	now := l.now()
	c.meta.EventSeq++
	c.events = append(c.events, store.EventRecord{
		ID:           ulid.MustNew(ulid.Timestamp(now), l.entropy).String(),
		Seq:          c.meta.EventSeq,
		Kind:         string(kind),
		TokenID:      tokenID,
		Actor:        string(actor),
		Counterparty: string(counterparty),
		Amount:       amount,
		Timestamp:    now.UnixNano(),
	})
}

// History returns the committed events of a token in order. A zero tokenID
// returns the whole log.
func (l *Ledger) History(ctx context.Context, tokenID uint64) ([]Event, error) {
	if tokenID != 0 {
		l.mu.RLock()
		_, ok := l.registry.token(tokenID)
		l.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: token %d", ErrNotFound, tokenID)
		}
	}

	records, err := l.store.Events(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %w", ErrStore, err)
	}
	events := make([]Event, len(records))
	for i, r := range records {
		events[i] = eventFromRecord(r)
	}
	return events, nil
}
