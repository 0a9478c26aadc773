package risk

import "github.com/shopspring/decimal"

// BTCProxyCorrelation estimates pairwise correlation from each symbol's
// correlation to BTC, the only correlation figure tracked per-symbol by
// the scanner. corr(a,b) ~= corr(a,BTC) * corr(b,BTC); both are in
// [-1,1] so is the product, which is the right sign and shrinks toward
// zero when either leg is weakly BTC-correlated.
type BTCProxyCorrelation struct {
	btcCorrelation map[string]decimal.Decimal
}

// NewBTCProxyCorrelation builds a provider from a symbol->BTC-correlation
// snapshot, typically taken from the latest scan results.
func NewBTCProxyCorrelation(btcCorrelation map[string]decimal.Decimal) *BTCProxyCorrelation {
	return &BTCProxyCorrelation{btcCorrelation: btcCorrelation}
}

// Correlation implements CorrelationProvider.
func (c *BTCProxyCorrelation) Correlation(a, b string) decimal.Decimal {
	if a == b {
		return decimal.NewFromInt(1)
	}
	ca, ok := c.btcCorrelation[a]
	if !ok {
		return decimal.Zero
	}
	cb, ok := c.btcCorrelation[b]
	if !ok {
		return decimal.Zero
	}
	return ca.Mul(cb)
}
