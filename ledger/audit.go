package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/bitfsorg/libroyalty-go/revshare"
	"github.com/bitfsorg/libroyalty-go/store"
)

// Audit re-checks the global invariants against current state: shares of
// every token sum to its supply, no pool paid out more than it received,
// no holder's settled claims exceed its entitlement, and every listing is
// held by its token's whole owner.
func (l *Ledger) Audit() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var errs []error
	for _, id := range sortedIDs(l.registry.tokens) {
		t := l.registry.tokens[id]

		holdings := l.shares.holders(id)
		balances := make([]uint64, len(holdings))
		for i, h := range holdings {
			balances[i] = h.Amount
		}
		if err := revshare.ValidateShareConservation(balances, t.TotalShares); err != nil {
			errs = append(errs, fmt.Errorf("token %d: %w", id, err))
		}

		p := l.royalty.pool(id)
		if err := revshare.ValidatePool(p.TotalDistributed, p.TotalClaimed); err != nil {
			errs = append(errs, fmt.Errorf("token %d: %w", id, err))
		}

		var owed uint64
		for _, h := range l.participants(id) {
			rec := l.royalty.holder(id, h)
			ent, err := p.Accrued.Entitlement(l.shares.balance(id, h), &rec.Credit, &rec.Debit)
			if err != nil {
				errs = append(errs, fmt.Errorf("token %d holder %s: %w", id, h, err))
				continue
			}
			if ent < rec.Claimed {
				errs = append(errs, fmt.Errorf("token %d holder %s: claimed %d of entitlement %d", id, h, rec.Claimed, ent))
				continue
			}
			owed += ent - rec.Claimed
		}
		if owed > p.TotalDistributed-p.TotalClaimed {
			errs = append(errs, fmt.Errorf("token %d: owed %d exceeds unclaimed pool %d", id, owed, p.TotalDistributed-p.TotalClaimed))
		}

		if r, ok := l.market.listing(id); ok && !l.ownsWhole(t, Principal(r.Seller)) {
			errs = append(errs, fmt.Errorf("token %d: listed by %s who does not own every share", id, r.Seller))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvariant, errors.Join(errs...))
	}
	return nil
}

// participants returns every principal with shares or a settlement record
// for a token.
func (l *Ledger) participants(id uint64) []Principal {
	seen := make(map[Principal]struct{})
	for h := range l.shares.balances[id] {
		seen[h] = struct{}{}
	}
	for k := range l.royalty.holders {
		if k.tokenID == id {
			seen[k.holder] = struct{}{}
		}
	}
	out := make([]Principal, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StateDigest returns a BLAKE2b-256 digest of the complete ledger state.
// Two ledgers with equal digests hold identical state.
func (l *Ledger) StateDigest() [32]byte {
	l.mu.RLock()
	defer l.mu.RUnlock()

	h, _ := blake2b.New256(nil)
	d := digester{h: h}

	d.str("meta")
	d.str(l.meta.Owner)
	d.str(l.meta.Oracle)
	d.u64(l.meta.NextTokenID)
	d.u64(l.meta.EventSeq)

	d.str("tokens")
	for _, id := range sortedIDs(l.registry.tokens) {
		t := l.registry.tokens[id]
		d.u64(t.ID)
		d.str(t.Artist)
		d.str(t.Title)
		d.u64(uint64(t.RoyaltyPercentage))
		d.u64(t.TotalShares)
		d.str(t.MetadataURI)
		d.u64(uint64(t.MintedAt))
	}

	d.str("balances")
	for _, id := range sortedIDs(l.shares.balances) {
		for _, h := range l.shares.holders(id) {
			d.u64(id)
			d.str(string(h.Holder))
			d.u64(h.Amount)
		}
	}

	d.str("pools")
	for _, id := range sortedIDs(l.royalty.pools) {
		p := l.royalty.pools[id]
		d.u64(p.TokenID)
		d.u64(p.TotalDistributed)
		d.u64(p.TotalClaimed)
		d.bytes(p.Accrued.PerShare.Bytes())
		d.bytes(p.Accrued.Dust.Bytes())
	}

	d.str("holders")
	for _, k := range sortedHoldings(l.royalty.holders) {
		r := l.royalty.holders[k]
		d.u64(r.TokenID)
		d.str(r.Holder)
		d.u64(r.Claimed)
		d.bytes(r.Credit.Bytes())
		d.bytes(r.Debit.Bytes())
	}

	d.str("listings")
	for _, id := range sortedIDs(l.market.listings) {
		r := l.market.listings[id]
		d.u64(r.TokenID)
		d.str(r.Seller)
		d.u64(r.Price)
		d.u64(uint64(r.ListedAt))
	}

	d.str("streams")
	for _, id := range sortedIDs(l.oracle.streams) {
		s := l.oracle.streams[id]
		d.u64(s.TokenID)
		d.u64(s.RevenuePerStream)
		d.u64(s.StreamCount)
		d.u64(s.Sequence)
		d.u64(uint64(s.UpdatedAt))
	}

	d.str("accounts")
	accounts := make([]store.AccountRecord, 0, len(l.funds.accounts))
	for p, bal := range l.funds.accounts {
		accounts = append(accounts, store.AccountRecord{Principal: string(p), Balance: bal})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Principal < accounts[j].Principal })
	for _, a := range accounts {
		d.str(a.Principal)
		d.u64(a.Balance)
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// digester writes length-prefixed fields so no two states share an encoding.
type digester struct {
	h   hash.Hash
	buf [binary.MaxVarintLen64]byte
}

func (d *digester) u64(v uint64) {
	n := binary.PutUvarint(d.buf[:], v)
	d.h.Write(d.buf[:n])
}

func (d *digester) bytes(b []byte) {
	d.u64(uint64(len(b)))
	d.h.Write(b)
}

func (d *digester) str(s string) { d.bytes([]byte(s)) }
