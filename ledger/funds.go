package ledger

import (
	"context"
	"fmt"

	"github.com/bitfsorg/libroyalty-go/store"
)

// treasury owns principals' spendable value: what buyers pay with and where
// sale proceeds and royalty claims land.
type treasury struct {
	accounts map[Principal]uint64
}

func newTreasury() *treasury {
	return &treasury{accounts: make(map[Principal]uint64)}
}

func (t *treasury) balance(p Principal) uint64 { return t.accounts[p] }

func (t *treasury) balanceIn(c *change, p Principal) uint64 {
	if v, ok := c.accounts[p]; ok {
		return v
	}
	return t.balance(p)
}

func (t *treasury) put(a store.AccountRecord) {
	if a.Balance == 0 {
		delete(t.accounts, Principal(a.Principal))
		return
	}
	t.accounts[Principal(a.Principal)] = a.Balance
}

func (t *treasury) credit(c *change, p Principal, amount uint64) error {
	bal := t.balanceIn(c, p)
	if bal+amount < bal {
		return fmt.Errorf("%w: account %s", ErrOverflow, p)
	}
	c.accounts[p] = bal + amount
	return nil
}

func (t *treasury) debit(c *change, p Principal, amount uint64) error {
	bal := t.balanceIn(c, p)
	if amount > bal {
		return fmt.Errorf("%w: balance %d, price %d", ErrInsufficientFunds, bal, amount)
	}
	c.accounts[p] = bal - amount
	return nil
}

// Deposit credits value entering the ledger from outside to account.
// Only the contract owner may deposit.
func (l *Ledger) Deposit(ctx context.Context, caller, account Principal, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != Principal(l.meta.Owner) {
		return l.reject("deposit", caller, fmt.Errorf("%w: deposit requires the contract owner", ErrNotAuthorized))
	}
	if account == "" {
		return l.reject("deposit", caller, fmt.Errorf("%w: account", ErrInvalidPrincipal))
	}
	if amount == 0 {
		return l.reject("deposit", caller, fmt.Errorf("%w: zero deposit", ErrInvalidAmount))
	}

	c := l.begin("deposit")
	if err := l.funds.credit(c, account, amount); err != nil {
		return l.reject("deposit", caller, err)
	}
	l.emit(c, EventDeposit, 0, caller, account, amount)
	return l.commit(ctx, c)
}

// GetFunds returns account's spendable value.
func (l *Ledger) GetFunds(account Principal) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.funds.balance(account)
}
