package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint(t *testing.T) {
	l := newTestLedger(t)
	id := mintSong(t, l, 1000, 10)

	assert.Equal(t, uint64(1), id)
	assert.Equal(t, uint64(1), l.LastTokenID())

	info, err := l.GetTokenInfo(id)
	require.NoError(t, err)
	assert.Equal(t, artist, info.Artist)
	assert.Equal(t, "Midnight Tape", info.Title)
	assert.Equal(t, uint8(10), info.RoyaltyPercentage)
	assert.Equal(t, uint64(1000), info.TotalShares)
	assert.Equal(t, epoch.Add(2*time.Second), info.MintedAt)

	bal, err := l.GetShareBalance(id, artist)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal)

	total, err := l.GetTotalRoyalties(id)
	require.NoError(t, err)
	assert.Zero(t, total)

	status, err := l.GetNFTSaleStatus(id)
	require.NoError(t, err)
	assert.False(t, status.IsForSale)
	requireAudit(t, l)
}

func TestMint_SequentialIDs(t *testing.T) {
	l := newTestLedger(t)
	for want := uint64(1); want <= 5; want++ {
		assert.Equal(t, want, mintSong(t, l, 10, 0))
	}
	assert.Equal(t, uint64(5), l.LastTokenID())
}

func TestMint_Rejected(t *testing.T) {
	valid := MintParams{Artist: artist, Title: "t", RoyaltyPercentage: 10, TotalShares: 100}

	tests := []struct {
		name   string
		caller Principal
		mutate func(*MintParams)
		want   error
	}{
		{"non-owner", artist, func(*MintParams) {}, ErrNotAuthorized},
		{"royalty above 100", owner, func(p *MintParams) { p.RoyaltyPercentage = 101 }, ErrInvalidRoyaltyPercentage},
		{"zero shares", owner, func(p *MintParams) { p.TotalShares = 0 }, ErrInvalidShareCount},
		{"empty artist", owner, func(p *MintParams) { p.Artist = "" }, ErrInvalidPrincipal},
		{"long title", owner, func(p *MintParams) { p.Title = strings.Repeat("a", MaxTitleLength+1) }, ErrInvalidMetadata},
		{"long uri", owner, func(p *MintParams) { p.MetadataURI = strings.Repeat("u", MaxURILength+1) }, ErrInvalidMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			before := l.StateDigest()

			p := valid
			tt.mutate(&p)
			_, err := l.Mint(context.Background(), tt.caller, p)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, l.StateDigest())
			assert.Zero(t, l.LastTokenID())
		})
	}
}

func TestMint_BoundaryValues(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Mint(context.Background(), owner, MintParams{
		Artist:            artist,
		Title:             strings.Repeat("a", MaxTitleLength),
		RoyaltyPercentage: MaxRoyaltyPercentage,
		TotalShares:       1,
	})
	require.NoError(t, err)
	requireAudit(t, l)
}

func TestGetTokenInfo_NotFound(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GetTokenInfo(42)
	assert.ErrorIs(t, err, ErrNotFound)
}
