package ledger

import (
	"time"

	"github.com/bitfsorg/libroyalty-go/store"
)

// Principal identifies a caller, artist, holder or account.
type Principal string

const (
	// MaxRoyaltyPercentage is the highest royalty percentage a token can carry.
	MaxRoyaltyPercentage = 100

	// MaxTitleLength bounds Token.Title in bytes.
	MaxTitleLength = 256

	// MaxURILength bounds Token.MetadataURI in bytes.
	MaxURILength = 256

	// MaxPrice is the highest accepted listing price.
	MaxPrice = 1<<63 - 1
)

// MintParams are the inputs of Mint.
type MintParams struct {
	Artist            Principal
	Title             string
	RoyaltyPercentage uint8
	TotalShares       uint64
	MetadataURI       string
}

// TokenInfo describes a minted token.
type TokenInfo struct {
	ID                uint64
	Artist            Principal
	Title             string
	RoyaltyPercentage uint8
	TotalShares       uint64
	MetadataURI       string
	MintedAt          time.Time
}

// Holding is one holder's share balance.
type Holding struct {
	Holder Principal
	Amount uint64
}

// PoolInfo summarizes a token's royalty pool.
type PoolInfo struct {
	TokenID          uint64
	TotalDistributed uint64
	TotalClaimed     uint64
	// PerShareAccrued is the per-share accrual scaled by revshare.Scale, in decimal.
	PerShareAccrued string
}

// Unclaimed is the value distributed but not yet paid out.
func (p PoolInfo) Unclaimed() uint64 { return p.TotalDistributed - p.TotalClaimed }

// SaleStatus is a token's marketplace state.
type SaleStatus struct {
	TokenID   uint64
	IsForSale bool
	Seller    Principal
	Price     uint64
	ListedAt  time.Time
}

// StreamData is the oracle-reported streaming data of a token.
type StreamData struct {
	TokenID          uint64
	RevenuePerStream uint64
	StreamCount      uint64
	Sequence         uint64 // last applied report sequence
	UpdatedAt        time.Time
}

// StreamReport carries the figures of one signed oracle report.
type StreamReport struct {
	TokenID          uint64
	RevenuePerStream uint64 // 0 leaves the recorded figure unchanged
	StreamCount      uint64 // 0 leaves the recorded count unchanged
	Sequence         uint64
}

func tokenInfo(t store.TokenRecord) TokenInfo {
	return TokenInfo{
		ID:                t.ID,
		Artist:            Principal(t.Artist),
		Title:             t.Title,
		RoyaltyPercentage: t.RoyaltyPercentage,
		TotalShares:       t.TotalShares,
		MetadataURI:       t.MetadataURI,
		MintedAt:          time.Unix(t.MintedAt, 0).UTC(),
	}
}
