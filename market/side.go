package market

import (
	"fmt"
	"strings"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// IsBuy reports whether s is a long side. Anything that is not BUY is
// handled as a short.
func (s Side) IsBuy() bool { return s == Buy }

// Sign is +1 for BUY and -1 otherwise.
func (s Side) Sign() float64 {
	if s.IsBuy() {
		return 1
	}
	return -1
}

func (s Side) Valid() bool { return s == Buy || s == Sell }
