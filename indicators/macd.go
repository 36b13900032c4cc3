package indicators

// MACDResult is the latest MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD computes the moving average convergence/divergence. It needs
// slow+signal-1 closes.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	for _, p := range []int{fast, slow, signal} {
		if err := checkPeriod("MACD", p); err != nil {
			return MACDResult{}, err
		}
	}
	if fast >= slow {
		fast, slow = slow, fast
	}
	if need := slow + signal - 1; len(closes) < need {
		return MACDResult{}, needed("MACD", len(closes), need)
	}

	fastEMA, err := EMASeries(closes, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowEMA, err := EMASeries(closes, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// fastEMA[i] lines up with closes[i+fast-1]; slowEMA[j] with closes[j+slow-1].
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for j := range slowEMA {
		line[j] = fastEMA[j+offset] - slowEMA[j]
	}

	sig, err := EMASeries(line, signal)
	if err != nil {
		return MACDResult{}, err
	}

	m := line[len(line)-1]
	s := sig[len(sig)-1]
	return MACDResult{MACD: m, Signal: s, Histogram: m - s}, nil
}
