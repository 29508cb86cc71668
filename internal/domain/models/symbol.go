package models

import "strings"

// Kind partitions instruments by trading session behavior.
type Kind int

const (
	// KindEquity trades regular US sessions with pre/post-market windows.
	KindEquity Kind = iota
	// KindAlwaysOpen trades continuously (crypto pairs); pre/post-market
	// fields do not apply.
	KindAlwaysOpen
)

// alwaysOpenSuffix marks continuously traded pairs, e.g. BTC-USD.
const alwaysOpenSuffix = "-USD"

// Classify partitions a symbol into equity vs always-open by suffix
// convention. Total; unknown symbols are treated as equities.
func Classify(symbol string) Kind {
	if strings.HasSuffix(symbol, alwaysOpenSuffix) {
		return KindAlwaysOpen
	}
	return KindEquity
}

// String implements fmt.Stringer for log fields.
func (k Kind) String() string {
	if k == KindAlwaysOpen {
		return "always_open"
	}
	return "equity"
}
