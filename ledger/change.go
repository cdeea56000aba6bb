package ledger

import (
	"sort"

	"github.com/bitfsorg/libroyalty-go/store"
)

// holding keys per-holder records of a token.
type holding struct {
	tokenID uint64
	holder  Principal
}

// change collects the writes of one operation before they are committed.
// Components read through it so that several writes to the same record
// within one operation compose correctly.
type change struct {
	op       string
	meta     store.Meta
	tokens   []store.TokenRecord
	balances map[holding]uint64
	holders  map[holding]store.HolderRecord
	pools    map[uint64]store.PoolRecord
	listings map[uint64]*store.ListingRecord // nil deletes
	streams  map[uint64]store.StreamRecord
	accounts map[Principal]uint64
	events   []store.EventRecord
}

func newChange(op string, meta store.Meta) *change {
	return &change{
		op:       op,
		meta:     meta,
		balances: make(map[holding]uint64),
		holders:  make(map[holding]store.HolderRecord),
		pools:    make(map[uint64]store.PoolRecord),
		listings: make(map[uint64]*store.ListingRecord),
		streams:  make(map[uint64]store.StreamRecord),
		accounts: make(map[Principal]uint64),
	}
}

// batch turns the change into a store batch with deterministic ordering.
func (c *change) batch() *store.Batch {
	meta := c.meta
	b := &store.Batch{Meta: &meta, Tokens: c.tokens, Events: c.events}

	for _, k := range sortedHoldings(c.balances) {
		b.Balances = append(b.Balances, store.BalanceRecord{TokenID: k.tokenID, Holder: string(k.holder), Amount: c.balances[k]})
	}
	for _, k := range sortedHoldings(c.holders) {
		b.Holders = append(b.Holders, c.holders[k])
	}
	for _, id := range sortedIDs(c.pools) {
		b.Pools = append(b.Pools, c.pools[id])
	}
	for _, id := range sortedIDs(c.listings) {
		if l := c.listings[id]; l != nil {
			b.Listings = append(b.Listings, *l)
		} else {
			b.DeletedListings = append(b.DeletedListings, id)
		}
	}
	for _, id := range sortedIDs(c.streams) {
		b.Streams = append(b.Streams, c.streams[id])
	}

	accounts := make([]Principal, 0, len(c.accounts))
	for p := range c.accounts {
		accounts = append(accounts, p)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	for _, p := range accounts {
		b.Accounts = append(b.Accounts, store.AccountRecord{Principal: string(p), Balance: c.accounts[p]})
	}
	return b
}

func sortedHoldings[V any](m map[holding]V) []holding {
	keys := make([]holding, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].tokenID != keys[j].tokenID {
			return keys[i].tokenID < keys[j].tokenID
		}
		return keys[i].holder < keys[j].holder
	})
	return keys
}

func sortedIDs[V any](m map[uint64]V) []uint64 {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
