package revshare

import "errors"

var (
	// ErrShareConservationViolation indicates shares were created or destroyed.
	ErrShareConservationViolation = errors.New("revshare: share conservation violated")

	// ErrZeroTotalShares indicates total shares is zero.
	ErrZeroTotalShares = errors.New("revshare: zero total shares")

	// ErrZeroAmount indicates a distribution of zero value.
	ErrZeroAmount = errors.New("revshare: zero distribution amount")

	// ErrOverflow indicates a fixed-point computation exceeded its range.
	ErrOverflow = errors.New("revshare: arithmetic overflow")

	// ErrUnderflow indicates an entitlement correction exceeded the accrued value.
	ErrUnderflow = errors.New("revshare: arithmetic underflow")

	// ErrInvalidPercentage indicates a royalty percentage above 100.
	ErrInvalidPercentage = errors.New("revshare: royalty percentage out of range")
)
