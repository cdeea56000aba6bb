package oracle

import "errors"

var (
	// ErrInvalidReport indicates a report with missing or inconsistent fields.
	ErrInvalidReport = errors.New("oracle: invalid report")

	// ErrBadSignature indicates the report signature does not verify against
	// the embedded public key.
	ErrBadSignature = errors.New("oracle: bad report signature")

	// ErrReplay indicates a report whose sequence is not above the last
	// accepted sequence for its token.
	ErrReplay = errors.New("oracle: replayed report")

	// ErrStale indicates a report timestamp outside the accepted window.
	ErrStale = errors.New("oracle: stale report")

	// ErrRejected indicates the ledger refused the report.
	ErrRejected = errors.New("oracle: report rejected by ledger")
)
