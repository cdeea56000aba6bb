package revshare

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Scale is the fixed-point precision of per-share accrual: one unit of value
// per share is stored as Scale.
const Scale = 1_000_000

var scale = uint256.NewInt(Scale)

// Accumulator tracks the cumulative value distributed per share of a token.
//
// PerShare is scaled by Scale and always rounded down. Dust holds the
// remainder numerator (< total shares) left over by the last division and is
// folded into the next distribution, so no distributed value is lost.
type Accumulator struct {
	PerShare uint256.Int
	Dust     uint256.Int
}

// Add returns the accumulator after distributing amount over totalShares.
// The receiver is not modified.
func (a Accumulator) Add(amount, totalShares uint64) (Accumulator, error) {
	if amount == 0 {
		return a, ErrZeroAmount
	}
	if totalShares == 0 {
		return a, ErrZeroTotalShares
	}

	num, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(amount), scale)
	if overflow {
		return a, fmt.Errorf("%w: scaling amount %d", ErrOverflow, amount)
	}
	if _, overflow = num.AddOverflow(num, &a.Dust); overflow {
		return a, fmt.Errorf("%w: folding dust", ErrOverflow)
	}

	total := uint256.NewInt(totalShares)
	inc := new(uint256.Int).Div(num, total)

	next := Accumulator{}
	next.Dust.Mod(num, total)
	if _, overflow = next.PerShare.AddOverflow(&a.PerShare, inc); overflow {
		return a, fmt.Errorf("%w: per-share accrual", ErrOverflow)
	}
	return next, nil
}

// IsZero reports whether nothing has been distributed yet.
func (a Accumulator) IsZero() bool {
	return a.PerShare.IsZero() && a.Dust.IsZero()
}

// Correction returns the scaled value that shares accrued up to now:
// shares * PerShare. It is added to the sender's credit and the recipient's
// debit when shares move, so accrual stays with whoever held the shares.
func (a Accumulator) Correction(shares uint64) (uint256.Int, error) {
	var out uint256.Int
	if _, overflow := out.MulOverflow(uint256.NewInt(shares), &a.PerShare); overflow {
		return out, fmt.Errorf("%w: correction for %d shares", ErrOverflow, shares)
	}
	return out, nil
}

// Entitlement returns the lifetime royalty a holder has earned, in whole units:
//
//	floor((balance*PerShare + credit - debit) / Scale)
func (a Accumulator) Entitlement(balance uint64, credit, debit *uint256.Int) (uint64, error) {
	v, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(balance), &a.PerShare)
	if overflow {
		return 0, fmt.Errorf("%w: balance %d", ErrOverflow, balance)
	}
	if _, overflow = v.AddOverflow(v, credit); overflow {
		return 0, fmt.Errorf("%w: credit", ErrOverflow)
	}
	if _, underflow := v.SubOverflow(v, debit); underflow {
		return 0, ErrUnderflow
	}
	v.Div(v, scale)
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: entitlement exceeds 64 bits", ErrOverflow)
	}
	return v.Uint64(), nil
}

// AddScaled returns x + y, failing on overflow.
func AddScaled(x, y *uint256.Int) (uint256.Int, error) {
	var out uint256.Int
	if _, overflow := out.AddOverflow(x, y); overflow {
		return out, ErrOverflow
	}
	return out, nil
}
