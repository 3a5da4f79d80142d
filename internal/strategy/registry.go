package strategy

// DefaultRegistry builds the full strategy catalogue. The catalogue is
// static: it is constructed once at startup and never mutated.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		MACross(),
		RSIReversal(),
		MACDSignal(),
		MACDRSI(),
		MACDTrend(),
		MACDZeroLine(),
		MACDVolume(),
		DipBuy(),
		KairiDip(),
		DipRSIVolume(),
		BollingerDip(),
		CupHandle(),
		BollingerReversion(),
		BollingerGap(),
	)
	if err != nil {
		// Duplicate ids in the built-in catalogue are a programming error.
		panic(err)
	}
	return r
}
