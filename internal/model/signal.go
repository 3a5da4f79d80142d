package model

// Signal is a per-bar trading decision, aligned index-for-index with the
// PriceSeries that produced it.
type Signal int8

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}
