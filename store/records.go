package store

import (
	"github.com/holiman/uint256"

	"github.com/bitfsorg/libroyalty-go/revshare"
)

// Meta is the process-wide ledger record.
type Meta struct {
	Owner       string // contract owner principal
	Oracle      string // principal allowed to push streaming data
	NextTokenID uint64 // next id handed out by Mint
	EventSeq    uint64 // sequence of the last emitted event
}

// TokenRecord is an immutable minted token.
type TokenRecord struct {
	ID                uint64
	Artist            string
	Title             string
	RoyaltyPercentage uint8
	TotalShares       uint64
	MetadataURI       string
	MintedAt          int64
}

// BalanceRecord is one holder's share balance. A zero Amount deletes it.
type BalanceRecord struct {
	TokenID uint64
	Holder  string
	Amount  uint64
}

// PoolRecord is a token's royalty pool.
type PoolRecord struct {
	TokenID          uint64
	TotalDistributed uint64
	TotalClaimed     uint64
	Accrued          revshare.Accumulator
}

// HolderRecord tracks one holder's royalty settlement for a token.
type HolderRecord struct {
	TokenID uint64
	Holder  string
	Claimed uint64      // value already paid out
	Credit  uint256.Int // scaled accrual kept when shares were sent away
	Debit   uint256.Int // scaled accrual that came attached to received shares
}

// ListingRecord is an active marketplace listing.
type ListingRecord struct {
	TokenID  uint64
	Seller   string
	Price    uint64
	ListedAt int64
}

// StreamRecord is the oracle-reported streaming data for a token.
type StreamRecord struct {
	TokenID          uint64
	RevenuePerStream uint64
	StreamCount      uint64
	Sequence         uint64 // last applied signed report, 0 if none
	UpdatedAt        int64
}

// AccountRecord is a principal's spendable value. A zero Balance deletes it.
type AccountRecord struct {
	Principal string
	Balance   uint64
}

// EventRecord is an append-only ledger event.
type EventRecord struct {
	ID           string // ULID
	Seq          uint64
	Kind         string
	TokenID      uint64
	Actor        string
	Counterparty string
	Amount       uint64
	Timestamp    int64
}

// Batch is the full set of writes produced by one ledger operation. It is
// committed atomically or not at all.
type Batch struct {
	Meta            *Meta
	Tokens          []TokenRecord
	Balances        []BalanceRecord
	Pools           []PoolRecord
	Holders         []HolderRecord
	Listings        []ListingRecord
	DeletedListings []uint64
	Streams         []StreamRecord
	Accounts        []AccountRecord
	Events          []EventRecord
}

// Empty reports whether the batch writes nothing.
func (b *Batch) Empty() bool {
	return b.Meta == nil && len(b.Tokens) == 0 && len(b.Balances) == 0 &&
		len(b.Pools) == 0 && len(b.Holders) == 0 && len(b.Listings) == 0 &&
		len(b.DeletedListings) == 0 && len(b.Streams) == 0 &&
		len(b.Accounts) == 0 && len(b.Events) == 0
}

// Snapshot is the complete persisted state, as returned by Load.
type Snapshot struct {
	Meta     Meta
	Tokens   []TokenRecord
	Balances []BalanceRecord
	Pools    []PoolRecord
	Holders  []HolderRecord
	Listings []ListingRecord
	Streams  []StreamRecord
	Accounts []AccountRecord
}
