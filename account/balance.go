// Package account owns the paper account's cash.
//
// Store is a plain state mutator with no locking and no validation: it is
// owned by paper.Engine, which checks solvency before calling Reserve and
// serializes every call on its event loop.
package account

// Balance is a point-in-time view of the account.
//
// Cash is settled cash. Available is the part of Cash not held as margin by
// open orders, so Reserved() = Cash - Available. Total is a display value,
// Cash plus the unrealized P&L of open orders at the latest price.
type Balance struct {
	Cash       float64 `json:"cash"`
	Available  float64 `json:"available"`
	HeldAsset  float64 `json:"held_asset"`
	Unrealized float64 `json:"unrealized"`
	Total      float64 `json:"total"`

	// CommittedAsset is the base quantity promised to open SELL orders.
	CommittedAsset float64 `json:"committed_asset"`
}

// Reserved is the margin held by open orders.
func (b Balance) Reserved() float64 { return b.Cash - b.Available }

// Store is the single source of truth for the account balance.
type Store struct {
	initial float64
	bal     Balance
}

// New returns a Store holding initial in cash.
func New(initial float64) *Store {
	s := &Store{}
	s.Reset(initial)
	return s
}

// Balance returns a copy of the current balance.
func (s *Store) Balance() Balance { return s.bal }

// Initial is the balance the store was last reset to.
func (s *Store) Initial() float64 { return s.initial }

// Reserve moves amount from available to reserved margin. The caller must
// have checked Available >= amount.
func (s *Store) Reserve(amount float64) {
	s.bal.Available -= amount
}

// CloseOrderFunds releases an order's reserved margin and books its realized
// P&L. Cash and available both move by pnl so Reserved() drops by exactly
// reserved. Total converges to Cash until the next unrealized refresh.
func (s *Store) CloseOrderFunds(reserved, pnl float64) {
	s.bal.Available += reserved + pnl
	s.bal.Cash += pnl
	s.bal.Total = s.bal.Cash
	s.bal.Unrealized = 0
}

// UpdateRealTimePnL recomputes the display total from the aggregate
// unrealized P&L. Cash and Available are untouched.
func (s *Store) UpdateRealTimePnL(unrealized float64) {
	s.bal.Unrealized = unrealized
	s.bal.Total = s.bal.Cash + unrealized
}

// AdjustHeld changes the quantity of base asset held by open long orders.
func (s *Store) AdjustHeld(delta float64) {
	s.bal.HeldAsset += delta
	if s.bal.HeldAsset < 0 && s.bal.HeldAsset > -1e-12 {
		s.bal.HeldAsset = 0
	}
}

// FreeAsset is the held quantity not yet committed to a SELL order.
func (b Balance) FreeAsset() float64 { return b.HeldAsset - b.CommittedAsset }

// CommitAsset changes the quantity committed to open SELL orders.
func (s *Store) CommitAsset(delta float64) {
	s.bal.CommittedAsset += delta
	if s.bal.CommittedAsset < 0 && s.bal.CommittedAsset > -1e-12 {
		s.bal.CommittedAsset = 0
	}
}

// Reset restores the initial state with initial in cash.
func (s *Store) Reset(initial float64) {
	s.initial = initial
	s.bal = Balance{
		Cash:      initial,
		Available: initial,
		Total:     initial,
	}
}
