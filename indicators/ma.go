package indicators

// SMA is the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return 0, err
	}
	if len(values) < period {
		return 0, needed("SMA", len(values), period)
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// EMASeries returns the exponential moving average at every point from the
// end of warmup onwards. The first element is the SMA of the first period
// values, so the result has len(values)-period+1 elements.
func EMASeries(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return nil, err
	}
	if len(values) < period {
		return nil, needed("EMA", len(values), period)
	}

	k := 2.0 / float64(period+1)

	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	ema := sum / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)
	for _, v := range values[period:] {
		ema = (v-ema)*k + ema
		out = append(out, ema)
	}
	return out, nil
}

// EMA is the latest value of EMASeries.
func EMA(values []float64, period int) (float64, error) {
	s, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}
	return s[len(s)-1], nil
}
