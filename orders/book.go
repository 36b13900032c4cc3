package orders

import "time"

// Exit asks the book to close one open order.
type Exit struct {
	ID     string
	Price  float64
	Reason CloseReason
}

// Book keeps every order in history and each order id in exactly one of
// open or closed. It is not safe for concurrent use; paper.Engine owns it.
type Book struct {
	open    []*Order
	closed  []*Order
	history []*Order
	byID    map[string]*Order
}

func NewBook() *Book {
	return &Book{byID: make(map[string]*Order)}
}

// Add appends o to the open orders. Duplicate ids are a caller bug and are
// not checked beyond keeping the first for lookups.
func (b *Book) Add(o Order) {
	o = o.Clone()
	if o.Status == "" {
		o.Status = StatusOpen
	}
	p := &o
	b.open = append(b.open, p)
	b.history = append(b.history, p)
	if _, dup := b.byID[o.ID]; !dup {
		b.byID[o.ID] = p
	}
}

// Close moves every open order named in exits to closed, settling its close
// price, P&L and reason. All matched orders move together; unknown or
// already closed ids are skipped. The closed orders are returned.
func (b *Book) Close(exits []Exit, at time.Time) []Order {
	if len(exits) == 0 {
		return nil
	}

	want := make(map[string]Exit, len(exits))
	for _, e := range exits {
		want[e.ID] = e
	}

	var (
		done []Order
		keep = make([]*Order, 0, len(b.open))
	)
	for _, o := range b.open {
		e, ok := want[o.ID]
		if !ok || !o.close(e.Price, e.Reason, at) {
			keep = append(keep, o)
			continue
		}
		b.closed = append(b.closed, o)
		done = append(done, o.Clone())
	}
	b.open = keep
	return done
}

// Get returns the order with id, open or closed.
func (b *Book) Get(id string) (Order, bool) {
	o, ok := b.byID[id]
	if !ok {
		return Order{}, false
	}
	return o.Clone(), true
}

// Open returns open orders for market, or all open orders when market is "".
func (b *Book) Open(market string) []Order {
	out := make([]Order, 0, len(b.open))
	for _, o := range b.open {
		if market == "" || o.Market == market {
			out = append(out, o.Clone())
		}
	}
	return out
}

func (b *Book) OpenCount() int { return len(b.open) }

func (b *Book) Closed() []Order { return cloneAll(b.closed) }

func (b *Book) History() []Order { return cloneAll(b.history) }

// Each calls fn for every open order without copying. fn must not retain
// or modify the order.
func (b *Book) Each(fn func(o *Order)) {
	for _, o := range b.open {
		fn(o)
	}
}

// Reset drops every order.
func (b *Book) Reset() {
	b.open = nil
	b.closed = nil
	b.history = nil
	b.byID = make(map[string]*Order)
}

func cloneAll(in []*Order) []Order {
	out := make([]Order, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}
