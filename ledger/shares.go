package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/bitfsorg/libroyalty-go/store"
)

// shareLedger owns fractional share balances. Shares are only ever issued
// once, at mint, and moved afterwards; the sum per token never changes.
type shareLedger struct {
	balances map[uint64]map[Principal]uint64
}

func newShareLedger() *shareLedger {
	return &shareLedger{balances: make(map[uint64]map[Principal]uint64)}
}

func (s *shareLedger) balance(id uint64, holder Principal) uint64 {
	return s.balances[id][holder]
}

// balanceIn reads a balance through the pending writes of c.
func (s *shareLedger) balanceIn(c *change, id uint64, holder Principal) uint64 {
	if v, ok := c.balances[holding{id, holder}]; ok {
		return v
	}
	return s.balance(id, holder)
}

func (s *shareLedger) put(r store.BalanceRecord) {
	m := s.balances[r.TokenID]
	if m == nil {
		m = make(map[Principal]uint64)
		s.balances[r.TokenID] = m
	}
	if r.Amount == 0 {
		delete(m, Principal(r.Holder))
		return
	}
	m[Principal(r.Holder)] = r.Amount
}

// issue credits the full supply of a freshly minted token.
func (s *shareLedger) issue(c *change, id uint64, holder Principal, total uint64) {
	c.balances[holding{id, holder}] = total
}

// move transfers amount shares between two distinct holders.
func (s *shareLedger) move(c *change, id uint64, from, to Principal, amount uint64) error {
	fromBal := s.balanceIn(c, id, from)
	if amount > fromBal {
		return fmt.Errorf("%w: balance %d, transfer %d", ErrInsufficientBalance, fromBal, amount)
	}
	toBal := s.balanceIn(c, id, to)
	if toBal+amount < toBal {
		return fmt.Errorf("%w: recipient balance", ErrOverflow)
	}
	c.balances[holding{id, from}] = fromBal - amount
	c.balances[holding{id, to}] = toBal + amount
	return nil
}

func (s *shareLedger) holders(id uint64) []Holding {
	m := s.balances[id]
	out := make([]Holding, 0, len(m))
	for h, amt := range m {
		out = append(out, Holding{Holder: h, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out
}

// TransferShares moves amount shares of a token from sender to recipient.
// Only the sender may move its own shares. Accrued royalties stay claimable
// by whoever held the shares when they accrued; nothing is paid out here.
// A listing by the sender is withdrawn, since the sender no longer owns the
// whole token.
func (l *Ledger) TransferShares(ctx context.Context, caller Principal, id, amount uint64, sender, recipient Principal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.lookup(id)
	if err != nil {
		return l.reject("transfer_shares", caller, err)
	}
	if caller != sender {
		return l.reject("transfer_shares", caller, fmt.Errorf("%w: caller is not the sender", ErrNotAuthorized))
	}
	if amount == 0 {
		return l.reject("transfer_shares", caller, fmt.Errorf("%w: zero shares", ErrInvalidAmount))
	}
	if recipient == "" {
		return l.reject("transfer_shares", caller, fmt.Errorf("%w: recipient", ErrInvalidPrincipal))
	}
	if bal := l.shares.balance(id, sender); amount > bal {
		return l.reject("transfer_shares", caller, fmt.Errorf("%w: balance %d, transfer %d", ErrInsufficientBalance, bal, amount))
	}
	if sender == recipient {
		return nil
	}

	c := l.begin("transfer_shares")
	if err := l.shares.move(c, id, sender, recipient, amount); err != nil {
		return l.reject("transfer_shares", caller, err)
	}
	if err := l.royalty.carry(c, t, sender, recipient, amount); err != nil {
		return l.reject("transfer_shares", caller, err)
	}
	if r, ok := l.market.listing(id); ok && Principal(r.Seller) == sender {
		l.market.clear(c, id)
		l.emit(c, EventCancelListing, id, sender, "", 0)
	}
	l.emit(c, EventTransfer, id, sender, recipient, amount)
	return l.commit(ctx, c)
}

// GetShareBalance returns holder's shares of a token; 0 for unknown holders.
func (l *Ledger) GetShareBalance(id uint64, holder Principal) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return 0, err
	}
	return l.shares.balance(id, holder), nil
}

// Holders returns every holder with a positive balance, sorted by principal.
func (l *Ledger) Holders(id uint64) ([]Holding, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return nil, err
	}
	return l.shares.holders(id), nil
}
