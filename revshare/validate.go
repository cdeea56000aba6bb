package revshare

import "fmt"

// ValidateShareConservation checks that balances sum to exactly totalShares.
func ValidateShareConservation(balances []uint64, totalShares uint64) error {
	if totalShares == 0 {
		return ErrZeroTotalShares
	}
	var sum uint64
	for _, b := range balances {
		if sum+b < sum {
			return fmt.Errorf("%w: balance sum overflows", ErrShareConservationViolation)
		}
		sum += b
	}
	if sum != totalShares {
		return fmt.Errorf("%w: holders=%d total=%d", ErrShareConservationViolation, sum, totalShares)
	}
	return nil
}

// ValidatePool checks that claimed royalties never exceed distributed ones.
func ValidatePool(distributed, claimed uint64) error {
	if claimed > distributed {
		return fmt.Errorf("pool insolvent: claimed %d > distributed %d", claimed, distributed)
	}
	return nil
}
