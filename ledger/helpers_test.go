package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libroyalty-go/store"
)

const (
	owner  Principal = "owner"
	oracle Principal = "oracle"
	artist Principal = "artist"
	buyer  Principal = "buyer"
	fan    Principal = "fan"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fixedClock returns a clock that advances one second per call.
func fixedClock() func() time.Time {
	now := epoch
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// newTestLedger creates an in-memory ledger with owner and oracle set.
func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock())}, opts...)
	l, err := Init(context.Background(), store.NewMemStore(), Genesis{Owner: owner, Oracle: oracle}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// mintSong mints a token for artist with the given supply and royalty.
func mintSong(t *testing.T, l *Ledger, shares uint64, pct uint8) uint64 {
	t.Helper()
	id, err := l.Mint(context.Background(), owner, MintParams{
		Artist:            artist,
		Title:             "Midnight Tape",
		RoyaltyPercentage: pct,
		TotalShares:       shares,
		MetadataURI:       "ipfs://bafy/midnight.json",
	})
	require.NoError(t, err)
	return id
}

// requireAudit fails the test if any global invariant is broken.
func requireAudit(t *testing.T, l *Ledger) {
	t.Helper()
	require.NoError(t, l.Audit())
}
