package revshare

// SplitSale divides a sale price between the token's artist and the seller.
// The artist receives floor(price * pct / 100); the seller gets the
// remainder so the two parts always sum to price.
func SplitSale(price uint64, pct uint8) (artistCut, sellerProceeds uint64, err error) {
	if pct > 100 {
		return 0, 0, ErrInvalidPercentage
	}
	// price*pct can exceed 64 bits; divide first and fold the remainder back.
	artistCut = price/100*uint64(pct) + price%100*uint64(pct)/100
	return artistCut, price - artistCut, nil
}
