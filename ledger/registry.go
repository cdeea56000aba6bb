package ledger

import (
	"context"
	"fmt"

	"github.com/bitfsorg/libroyalty-go/store"
)

// registry owns token identity and immutable per-token configuration.
type registry struct {
	tokens map[uint64]store.TokenRecord
}

func newRegistry() *registry {
	return &registry{tokens: make(map[uint64]store.TokenRecord)}
}

func (r *registry) token(id uint64) (store.TokenRecord, bool) {
	t, ok := r.tokens[id]
	return t, ok
}

func (r *registry) put(t store.TokenRecord) { r.tokens[t.ID] = t }

// mint records a new token under the next id of the change.
func (r *registry) mint(c *change, p MintParams, mintedAt int64) (store.TokenRecord, error) {
	id := c.meta.NextTokenID
	if id == 0 || id+1 == 0 {
		return store.TokenRecord{}, fmt.Errorf("%w: token id space exhausted", ErrOverflow)
	}
	t := store.TokenRecord{
		ID:                id,
		Artist:            string(p.Artist),
		Title:             p.Title,
		RoyaltyPercentage: p.RoyaltyPercentage,
		TotalShares:       p.TotalShares,
		MetadataURI:       p.MetadataURI,
		MintedAt:          mintedAt,
	}
	c.meta.NextTokenID = id + 1
	c.tokens = append(c.tokens, t)
	return t, nil
}

// validateMint checks mint inputs against the token domain.
func validateMint(p MintParams) error {
	if p.Artist == "" {
		return fmt.Errorf("%w: artist", ErrInvalidPrincipal)
	}
	if p.RoyaltyPercentage > MaxRoyaltyPercentage {
		return fmt.Errorf("%w: %d", ErrInvalidRoyaltyPercentage, p.RoyaltyPercentage)
	}
	if p.TotalShares == 0 {
		return ErrInvalidShareCount
	}
	if len(p.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title is %d bytes, max %d", ErrInvalidMetadata, len(p.Title), MaxTitleLength)
	}
	if len(p.MetadataURI) > MaxURILength {
		return fmt.Errorf("%w: uri is %d bytes, max %d", ErrInvalidMetadata, len(p.MetadataURI), MaxURILength)
	}
	return nil
}

// Mint creates a token and credits all of its shares to the artist.
// Only the contract owner may mint.
func (l *Ledger) Mint(ctx context.Context, caller Principal, p MintParams) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != Principal(l.meta.Owner) {
		return 0, l.reject("mint", caller, fmt.Errorf("%w: mint requires the contract owner", ErrNotAuthorized))
	}
	if err := validateMint(p); err != nil {
		return 0, l.reject("mint", caller, err)
	}

	c := l.begin("mint")
	t, err := l.registry.mint(c, p, l.now().Unix())
	if err != nil {
		return 0, l.reject("mint", caller, err)
	}
	l.shares.issue(c, t.ID, p.Artist, t.TotalShares)
	l.royalty.open(c, t.ID)
	l.emit(c, EventMint, t.ID, caller, p.Artist, t.TotalShares)

	if err := l.commit(ctx, c); err != nil {
		return 0, err
	}
	return t.ID, nil
}

// GetTokenInfo returns a minted token.
func (l *Ledger) GetTokenInfo(id uint64) (TokenInfo, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.registry.token(id)
	if !ok {
		return TokenInfo{}, fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	return tokenInfo(t), nil
}

// LastTokenID returns the id of the most recently minted token, or 0.
func (l *Ledger) LastTokenID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.meta.NextTokenID == 0 {
		return 0
	}
	return l.meta.NextTokenID - 1
}

// lookup returns the token or ErrNotFound. Callers hold l.mu.
func (l *Ledger) lookup(id uint64) (store.TokenRecord, error) {
	t, ok := l.registry.token(id)
	if !ok {
		return store.TokenRecord{}, fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	return t, nil
}
