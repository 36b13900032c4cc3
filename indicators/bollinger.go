package indicators

import "math"

// Bands are Bollinger bands around a simple moving average.
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Width is the band width relative to the middle band.
func (b Bands) Width() float64 {
	if b.Middle == 0 {
		return 0
	}
	return (b.Upper - b.Lower) / b.Middle
}

// Bollinger computes bands k population standard deviations around the
// period SMA.
func Bollinger(closes []float64, period int, k float64) (Bands, error) {
	mid, err := SMA(closes, period)
	if err != nil {
		return Bands{}, err
	}

	var ss float64
	for _, v := range closes[len(closes)-period:] {
		d := v - mid
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(period))

	return Bands{
		Upper:  mid + k*sd,
		Middle: mid,
		Lower:  mid - k*sd,
	}, nil
}
