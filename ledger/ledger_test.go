package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bitfsorg/libroyalty-go/mocks"
	"github.com/bitfsorg/libroyalty-go/store"
)

func TestInit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	l, err := Init(ctx, st, Genesis{Owner: owner, Oracle: oracle})
	require.NoError(t, err)
	assert.Equal(t, owner, l.Owner())
	assert.Equal(t, oracle, l.OracleAddress())
	assert.Zero(t, l.LastTokenID())

	_, err = Init(ctx, st, Genesis{Owner: owner})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	_, err = Init(ctx, store.NewMemStore(), Genesis{})
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	_, err = Init(ctx, nil, Genesis{Owner: owner})
	assert.ErrorIs(t, err, ErrStore)
}

func TestOpen_NotInitialized(t *testing.T) {
	_, err := Open(context.Background(), store.NewMemStore())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestOpen_ReloadsBoltState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	st, err := store.OpenBoltStore(path)
	require.NoError(t, err)
	l, err := Init(ctx, st, Genesis{Owner: owner, Oracle: oracle}, WithClock(fixedClock()))
	require.NoError(t, err)

	id := mintSong(t, l, 1000, 10)
	require.NoError(t, l.TransferShares(ctx, artist, id, 100, artist, buyer))
	require.NoError(t, l.DistributeRoyalties(ctx, artist, id, 1100))
	require.NoError(t, l.TransferShares(ctx, buyer, id, 40, buyer, fan))
	_, err = l.ClaimRoyalties(ctx, buyer, id)
	require.NoError(t, err)
	require.NoError(t, l.Deposit(ctx, owner, fan, 900))
	require.NoError(t, l.SetRevenuePerStream(ctx, oracle, id, 2))
	require.NoError(t, l.UpdateStreamingData(ctx, oracle, id, 77))
	mintSong(t, l, 5, 0)
	require.NoError(t, l.ListForSale(ctx, artist, 2, 300))

	want := l.StateDigest()
	require.NoError(t, l.Close())

	st, err = store.OpenBoltStore(path)
	require.NoError(t, err)
	reopened, err := Open(ctx, st)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, want, reopened.StateDigest())
	assert.Equal(t, uint64(2), reopened.LastTokenID())
	requireAudit(t, reopened)

	c, err := reopened.GetClaimable(id, artist)
	require.NoError(t, err)
	assert.Equal(t, uint64(990), c)
	c, err = reopened.GetClaimable(id, fan)
	require.NoError(t, err)
	assert.Zero(t, c)

	status, err := reopened.GetNFTSaleStatus(2)
	require.NoError(t, err)
	assert.True(t, status.IsForSale)
	assert.Equal(t, uint64(300), status.Price)

	// Minting continues from the persisted counter.
	next, err := reopened.Mint(ctx, owner, MintParams{Artist: artist, TotalShares: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next)
}

// A failed commit must leave memory exactly as it was.
func TestCommitFailure_RollsBack(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)

	diskFull := errors.New("disk full")
	st.EXPECT().Load(gomock.Any()).Return(&store.Snapshot{}, nil)
	gomock.InOrder(
		st.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil).Times(4), // init, mint, deposit, list
		st.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(diskFull),
		st.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(diskFull),
	)

	var events []Event
	l, err := Init(ctx, st, Genesis{Owner: owner, Oracle: oracle},
		WithClock(fixedClock()),
		WithEventHandler(func(e Event) { events = append(events, e) }))
	require.NoError(t, err)

	id := mintSong(t, l, 1000, 10)
	require.NoError(t, l.Deposit(ctx, owner, buyer, 5000))
	require.NoError(t, l.ListForSale(ctx, artist, id, 5000))
	before := l.StateDigest()
	seen := len(events)

	err = l.BuyNFT(ctx, buyer, id)
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, diskFull)

	assert.Equal(t, before, l.StateDigest())
	assert.Equal(t, uint64(5000), l.GetFunds(buyer))
	bal, _ := l.GetShareBalance(id, artist)
	assert.Equal(t, uint64(1000), bal)
	status, _ := l.GetNFTSaleStatus(id)
	assert.True(t, status.IsForSale)
	assert.Len(t, events, seen, "no events for a failed commit")

	_, err = l.Mint(ctx, owner, MintParams{Artist: artist, TotalShares: 1})
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, uint64(1), l.LastTokenID())
	requireAudit(t, l)
}

// Rejected operations never reach the store.
func TestRejectedOperation_DoesNotCommit(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)

	st.EXPECT().Load(gomock.Any()).Return(&store.Snapshot{}, nil)
	st.EXPECT().Commit(gomock.Any(), gomock.Any()).Return(nil).Times(2) // init, mint

	l, err := Init(ctx, st, Genesis{Owner: owner})
	require.NoError(t, err)
	id := mintSong(t, l, 10, 0)

	assert.ErrorIs(t, l.ListForSale(ctx, buyer, id, 1), ErrNotAuthorized)
	assert.ErrorIs(t, l.DistributeRoyalties(ctx, artist, id, 0), ErrInvalidAmount)
	_, err = l.ClaimRoyalties(ctx, artist, id)
	assert.ErrorIs(t, err, ErrNoRoyaltiesToClaim)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	var got []Event
	l := newTestLedger(t, WithEventHandler(func(e Event) { got = append(got, e) }))
	require.Len(t, got, 1)
	assert.Equal(t, EventOracleChanged, got[0].Kind)
	got = got[:0]

	id := mintSong(t, l, 100, 0)
	require.NoError(t, l.TransferShares(ctx, artist, id, 10, artist, fan))
	require.NoError(t, l.DistributeRoyalties(ctx, artist, id, 100))
	_, err := l.ClaimRoyalties(ctx, fan, id)
	require.NoError(t, err)

	kinds := make([]EventKind, len(got))
	for i, e := range got {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []EventKind{EventMint, EventTransfer, EventDistribute, EventClaim}, kinds)

	history, err := l.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, got, history)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Seq, history[i-1].Seq)
		assert.Greater(t, history[i].ID, history[i-1].ID, "ULIDs sort in emission order")
	}
	assert.Equal(t, fan, history[3].Actor)
	assert.Equal(t, uint64(10), history[3].Amount)

	all, err := l.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "includes the oracle set at init")
	assert.Equal(t, EventOracleChanged, all[0].Kind)

	_, err = l.History(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := newTestLedger(t, WithLogger(zap.New(core)))
	id := mintSong(t, l, 100, 0)

	assert.ErrorIs(t, l.ListForSale(context.Background(), fan, id, 1), ErrNotAuthorized)

	assert.Equal(t, 2, logs.FilterMessage("ledger event").Len())
	rejected := logs.FilterMessage("operation rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "list_for_sale", rejected[0].ContextMap()["op"])
}

func TestStateDigest_Deterministic(t *testing.T) {
	run := func() [32]byte {
		ctx := context.Background()
		l := newTestLedger(t)
		id := mintSong(t, l, 1000, 10)
		require.NoError(t, l.TransferShares(ctx, artist, id, 250, artist, fan))
		require.NoError(t, l.DistributeRoyalties(ctx, artist, id, 333))
		return l.StateDigest()
	}
	assert.Equal(t, run(), run())

	l := newTestLedger(t)
	empty := l.StateDigest()
	mintSong(t, l, 1, 0)
	assert.NotEqual(t, empty, l.StateDigest())
}

func TestAudit_DetectsCorruption(t *testing.T) {
	l := newTestLedger(t)
	id := mintSong(t, l, 100, 0)
	requireAudit(t, l)

	l.shares.balances[id][fan] = 1
	err := l.Audit()
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "share conservation")
	delete(l.shares.balances[id], fan)

	p := l.royalty.pools[id]
	p.TotalClaimed = 1
	l.royalty.pools[id] = p
	assert.ErrorIs(t, l.Audit(), ErrInvariant)
	p.TotalClaimed = 0
	l.royalty.pools[id] = p
	requireAudit(t, l)

	l.market.put(store.ListingRecord{TokenID: id, Seller: string(fan), Price: 1})
	err = l.Audit()
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "does not own every share")
}
