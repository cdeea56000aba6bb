package ledger

import (
	"context"
	"fmt"

	"github.com/bitfsorg/libroyalty-go/revshare"
	"github.com/bitfsorg/libroyalty-go/store"
)

// royaltyEngine owns royalty pools and per-holder settlement records.
//
// A holder's lifetime entitlement is
//
//	floor((balance*PerShare + Credit - Debit) / revshare.Scale)
//
// and what it can claim is that minus Claimed. Credit and Debit move with
// shares (see carry) so the value that accrued on a share stays with the
// holder it accrued to.
type royaltyEngine struct {
	pools   map[uint64]store.PoolRecord
	holders map[holding]store.HolderRecord
}

func newRoyaltyEngine() *royaltyEngine {
	return &royaltyEngine{
		pools:   make(map[uint64]store.PoolRecord),
		holders: make(map[holding]store.HolderRecord),
	}
}

func (r *royaltyEngine) pool(id uint64) store.PoolRecord {
	if p, ok := r.pools[id]; ok {
		return p
	}
	return store.PoolRecord{TokenID: id}
}

func (r *royaltyEngine) poolIn(c *change, id uint64) store.PoolRecord {
	if p, ok := c.pools[id]; ok {
		return p
	}
	return r.pool(id)
}

func (r *royaltyEngine) holder(id uint64, h Principal) store.HolderRecord {
	if rec, ok := r.holders[holding{id, h}]; ok {
		return rec
	}
	return store.HolderRecord{TokenID: id, Holder: string(h)}
}

func (r *royaltyEngine) holderIn(c *change, id uint64, h Principal) store.HolderRecord {
	if rec, ok := c.holders[holding{id, h}]; ok {
		return rec
	}
	return r.holder(id, h)
}

func (r *royaltyEngine) putPool(p store.PoolRecord) { r.pools[p.TokenID] = p }

func (r *royaltyEngine) putHolder(h store.HolderRecord) {
	r.holders[holding{h.TokenID, Principal(h.Holder)}] = h
}

// open creates the empty pool of a new token.
func (r *royaltyEngine) open(c *change, id uint64) {
	c.pools[id] = store.PoolRecord{TokenID: id}
}

// carry re-attributes accrued value when amount shares move from one holder
// to another: the sender is credited, and the recipient debited, with the
// value those shares accrued so far.
func (r *royaltyEngine) carry(c *change, t store.TokenRecord, from, to Principal, amount uint64) error {
	p := r.poolIn(c, t.ID)
	if p.Accrued.PerShare.IsZero() {
		return nil
	}
	corr, err := p.Accrued.Correction(amount)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOverflow, err)
	}

	sender := r.holderIn(c, t.ID, from)
	if sender.Credit, err = revshare.AddScaled(&sender.Credit, &corr); err != nil {
		return fmt.Errorf("%w: sender credit: %w", ErrOverflow, err)
	}
	recipient := r.holderIn(c, t.ID, to)
	if recipient.Debit, err = revshare.AddScaled(&recipient.Debit, &corr); err != nil {
		return fmt.Errorf("%w: recipient debit: %w", ErrOverflow, err)
	}
	c.holders[holding{t.ID, from}] = sender
	c.holders[holding{t.ID, to}] = recipient
	return nil
}

// claimable returns what holder may claim now, given its share balance.
func (r *royaltyEngine) claimable(id uint64, holder Principal, balance uint64) (uint64, error) {
	p := r.pool(id)
	rec := r.holder(id, holder)
	ent, err := p.Accrued.Entitlement(balance, &rec.Credit, &rec.Debit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOverflow, err)
	}
	if ent < rec.Claimed {
		return 0, fmt.Errorf("%w: holder %s claimed %d of entitlement %d", ErrInvariant, holder, rec.Claimed, ent)
	}
	return ent - rec.Claimed, nil
}

// DistributeRoyalties adds amount to a token's pool for pro-rata claim by
// its shareholders. Only the token's artist may distribute.
func (l *Ledger) DistributeRoyalties(ctx context.Context, caller Principal, id, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.lookup(id)
	if err != nil {
		return l.reject("distribute_royalties", caller, err)
	}
	if caller != Principal(t.Artist) {
		return l.reject("distribute_royalties", caller, fmt.Errorf("%w: only the artist distributes royalties", ErrNotAuthorized))
	}
	if amount == 0 {
		return l.reject("distribute_royalties", caller, fmt.Errorf("%w: zero royalties", ErrInvalidAmount))
	}

	p := l.royalty.pool(id)
	if p.TotalDistributed+amount < p.TotalDistributed {
		return l.reject("distribute_royalties", caller, fmt.Errorf("%w: total distributed", ErrOverflow))
	}
	acc, err := p.Accrued.Add(amount, t.TotalShares)
	if err != nil {
		return l.reject("distribute_royalties", caller, fmt.Errorf("%w: %w", ErrOverflow, err))
	}

	c := l.begin("distribute_royalties")
	p.TotalDistributed += amount
	p.Accrued = acc
	c.pools[id] = p
	l.emit(c, EventDistribute, id, caller, "", amount)
	return l.commit(ctx, c)
}

// ClaimRoyalties pays the caller everything it is entitled to from a
// token's pool and returns the amount paid.
func (l *Ledger) ClaimRoyalties(ctx context.Context, caller Principal, id uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.lookup(id); err != nil {
		return 0, l.reject("claim_royalties", caller, err)
	}
	amount, err := l.royalty.claimable(id, caller, l.shares.balance(id, caller))
	if err != nil {
		return 0, l.reject("claim_royalties", caller, err)
	}
	if amount == 0 {
		return 0, l.reject("claim_royalties", caller, ErrNoRoyaltiesToClaim)
	}

	p := l.royalty.pool(id)
	if amount > p.TotalDistributed-p.TotalClaimed {
		return 0, l.reject("claim_royalties", caller,
			fmt.Errorf("%w: claim %d exceeds unclaimed pool %d", ErrInvariant, amount, p.TotalDistributed-p.TotalClaimed))
	}

	c := l.begin("claim_royalties")
	rec := l.royalty.holder(id, caller)
	rec.Claimed += amount
	c.holders[holding{id, caller}] = rec
	p.TotalClaimed += amount
	c.pools[id] = p
	if err := l.funds.credit(c, caller, amount); err != nil {
		return 0, l.reject("claim_royalties", caller, err)
	}
	l.emit(c, EventClaim, id, caller, "", amount)

	if err := l.commit(ctx, c); err != nil {
		return 0, err
	}
	return amount, nil
}

// GetTotalRoyalties returns everything ever distributed to a token's pool.
func (l *Ledger) GetTotalRoyalties(id uint64) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return 0, err
	}
	return l.royalty.pool(id).TotalDistributed, nil
}

// GetClaimable returns what holder could claim from a token's pool now.
func (l *Ledger) GetClaimable(id uint64, holder Principal) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return 0, err
	}
	return l.royalty.claimable(id, holder, l.shares.balance(id, holder))
}

// GetPool returns a summary of a token's royalty pool.
func (l *Ledger) GetPool(id uint64) (PoolInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return PoolInfo{}, err
	}
	p := l.royalty.pool(id)
	return PoolInfo{
		TokenID:          id,
		TotalDistributed: p.TotalDistributed,
		TotalClaimed:     p.TotalClaimed,
		PerShareAccrued:  p.Accrued.PerShare.Dec(),
	}, nil
}
