// Package indicators computes technical indicators over candle series.
//
// Everything here is a pure function of its inputs: no state is kept between
// calls, so the same series always yields the same values.
package indicators

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotEnoughData is returned when a series is shorter than an
	// indicator's warmup.
	ErrNotEnoughData = errors.New("not enough data")

	// ErrInvalidData is returned for non-positive or non-finite prices.
	ErrInvalidData = errors.New("invalid price data")
)

func needed(name string, have, need int) error {
	return fmt.Errorf("%s: %w: need %d, got %d", name, ErrNotEnoughData, need, have)
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s: period must be positive, got %d", name, period)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
