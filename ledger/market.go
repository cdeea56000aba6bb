package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfsorg/libroyalty-go/revshare"
	"github.com/bitfsorg/libroyalty-go/store"
)

// marketplace owns whole-token sale listings.
type marketplace struct {
	listings map[uint64]store.ListingRecord
}

func newMarketplace() *marketplace {
	return &marketplace{listings: make(map[uint64]store.ListingRecord)}
}

func (m *marketplace) listing(id uint64) (store.ListingRecord, bool) {
	r, ok := m.listings[id]
	return r, ok
}

func (m *marketplace) put(r store.ListingRecord) { m.listings[r.TokenID] = r }

func (m *marketplace) remove(id uint64) { delete(m.listings, id) }

// list records a listing in c.
func (m *marketplace) list(c *change, id uint64, seller Principal, price uint64, at int64) {
	c.listings[id] = &store.ListingRecord{TokenID: id, Seller: string(seller), Price: price, ListedAt: at}
}

// clear removes a listing in c.
func (m *marketplace) clear(c *change, id uint64) { c.listings[id] = nil }

// ownsWhole reports whether holder holds every share of t.
func (l *Ledger) ownsWhole(t store.TokenRecord, holder Principal) bool {
	return l.shares.balance(t.ID, holder) == t.TotalShares
}

// ListForSale offers the whole token at price. The caller must hold all of
// its shares. Listing again replaces the previous listing.
func (l *Ledger) ListForSale(ctx context.Context, caller Principal, id, price uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.lookup(id)
	if err != nil {
		return l.reject("list_for_sale", caller, err)
	}
	if !l.ownsWhole(t, caller) {
		return l.reject("list_for_sale", caller, fmt.Errorf("%w: caller does not own the whole token", ErrNotAuthorized))
	}
	if price > MaxPrice {
		return l.reject("list_for_sale", caller, fmt.Errorf("%w: %d exceeds %d", ErrInvalidPrice, price, uint64(MaxPrice)))
	}

	c := l.begin("list_for_sale")
	l.market.list(c, id, caller, price, l.now().Unix())
	l.emit(c, EventList, id, caller, "", price)
	return l.commit(ctx, c)
}

// CancelSaleListing withdraws a listing. Only the lister may cancel.
func (l *Ledger) CancelSaleListing(ctx context.Context, caller Principal, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.lookup(id); err != nil {
		return l.reject("cancel_sale_listing", caller, err)
	}
	r, ok := l.market.listing(id)
	if !ok || Principal(r.Seller) != caller {
		return l.reject("cancel_sale_listing", caller, fmt.Errorf("%w: token %d is not listed by caller", ErrNotAuthorized, id))
	}

	c := l.begin("cancel_sale_listing")
	l.market.clear(c, id)
	l.emit(c, EventCancelListing, id, caller, "", 0)
	return l.commit(ctx, c)
}

// BuyNFT buys a listed token. In one commit the buyer pays the price, the
// artist receives its royalty cut when the seller is someone else, the
// seller receives the rest, every share moves to the buyer and the listing
// is cleared.
func (l *Ledger) BuyNFT(ctx context.Context, caller Principal, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.lookup(id)
	if err != nil {
		return l.reject("buy_nft", caller, err)
	}
	r, ok := l.market.listing(id)
	if !ok {
		return l.reject("buy_nft", caller, fmt.Errorf("%w: token %d", ErrNotForSale, id))
	}
	seller := Principal(r.Seller)
	if caller == seller {
		return l.reject("buy_nft", caller, ErrSelfPurchase)
	}
	if !l.ownsWhole(t, seller) {
		return l.reject("buy_nft", caller, fmt.Errorf("%w: seller no longer owns the whole token", ErrNotAuthorized))
	}
	if caller == "" {
		return l.reject("buy_nft", caller, fmt.Errorf("%w: buyer", ErrInvalidPrincipal))
	}
	if funds := l.funds.balance(caller); funds < r.Price {
		return l.reject("buy_nft", caller, fmt.Errorf("%w: balance %d, price %d", ErrInsufficientFunds, funds, r.Price))
	}

	artist := Principal(t.Artist)
	artistCut, proceeds := uint64(0), r.Price
	if seller != artist {
		if artistCut, proceeds, err = revshare.SplitSale(r.Price, t.RoyaltyPercentage); err != nil {
			return l.reject("buy_nft", caller, fmt.Errorf("%w: %w", ErrInvalidRoyaltyPercentage, err))
		}
	}

	c := l.begin("buy_nft")
	if err := l.funds.debit(c, caller, r.Price); err != nil {
		return l.reject("buy_nft", caller, err)
	}
	if artistCut > 0 {
		if err := l.funds.credit(c, artist, artistCut); err != nil {
			return l.reject("buy_nft", caller, err)
		}
	}
	if err := l.funds.credit(c, seller, proceeds); err != nil {
		return l.reject("buy_nft", caller, err)
	}
	if err := l.shares.move(c, id, seller, caller, t.TotalShares); err != nil {
		return l.reject("buy_nft", caller, err)
	}
	if err := l.royalty.carry(c, t, seller, caller, t.TotalShares); err != nil {
		return l.reject("buy_nft", caller, err)
	}
	l.market.clear(c, id)
	l.emit(c, EventSale, id, caller, seller, r.Price)
	return l.commit(ctx, c)
}

// GetNFTSaleStatus returns a token's listing state.
func (l *Ledger) GetNFTSaleStatus(id uint64) (SaleStatus, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.lookup(id); err != nil {
		return SaleStatus{}, err
	}
	r, ok := l.market.listing(id)
	if !ok {
		return SaleStatus{TokenID: id}, nil
	}
	return SaleStatus{
		TokenID:   id,
		IsForSale: true,
		Seller:    Principal(r.Seller),
		Price:     r.Price,
		ListedAt:  time.Unix(r.ListedAt, 0).UTC(),
	}, nil
}
