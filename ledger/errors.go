package ledger

import "errors"

var (
	// ErrNotAuthorized indicates the caller lacks the role the operation needs
	// (owner, artist, oracle, holder or lister).
	ErrNotAuthorized = errors.New("ledger: not authorized")

	// ErrNotFound indicates the referenced token does not exist.
	ErrNotFound = errors.New("ledger: token not found")

	// ErrInvalidAmount indicates an amount outside its domain.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrInvalidPrice indicates a listing price outside its domain.
	ErrInvalidPrice = errors.New("ledger: invalid price")

	// ErrInvalidRoyaltyPercentage indicates a royalty percentage above 100.
	ErrInvalidRoyaltyPercentage = errors.New("ledger: invalid royalty percentage")

	// ErrInvalidShareCount indicates a token minted with zero shares.
	ErrInvalidShareCount = errors.New("ledger: invalid share count")

	// ErrInsufficientBalance indicates a share transfer larger than the sender's balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient share balance")

	// ErrInsufficientFunds indicates a buyer cannot cover the listed price.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrNoRoyaltiesToClaim indicates the caller has nothing to claim.
	ErrNoRoyaltiesToClaim = errors.New("ledger: no royalties to claim")

	// ErrNotForSale indicates a purchase of an unlisted token.
	ErrNotForSale = errors.New("ledger: token not for sale")

	// ErrOverflow indicates an arithmetic result out of range. The operation
	// is rejected; values never wrap.
	ErrOverflow = errors.New("ledger: arithmetic overflow")

	// ErrInvalidPrincipal indicates an empty principal.
	ErrInvalidPrincipal = errors.New("ledger: invalid principal")

	// ErrInvalidMetadata indicates a title or metadata URI that is too long.
	ErrInvalidMetadata = errors.New("ledger: invalid token metadata")

	// ErrSelfPurchase indicates a seller trying to buy its own listing.
	ErrSelfPurchase = errors.New("ledger: seller cannot buy own listing")

	// ErrNotInitialized indicates a store that holds no ledger yet.
	ErrNotInitialized = errors.New("ledger: store not initialized")

	// ErrAlreadyInitialized indicates Init on a store that already holds a ledger.
	ErrAlreadyInitialized = errors.New("ledger: store already initialized")

	// ErrReportSequence indicates a signed oracle report whose sequence is
	// not above the last one applied for the token.
	ErrReportSequence = errors.New("ledger: report sequence already applied")

	// ErrInvariant indicates a violated global invariant.
	ErrInvariant = errors.New("ledger: invariant violated")

	// ErrStore indicates the state store failed to commit; nothing was applied.
	ErrStore = errors.New("ledger: store failure")
)
