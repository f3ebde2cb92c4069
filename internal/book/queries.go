package book

import (
	"github.com/shopspring/decimal"
)

var ten4 = decimal.NewFromInt(10000)

// BestAsk returns the lowest-priced ask level.
func (b *Book) BestAsk() (Level, bool) {
	return b.asks.Min()
}

// BestBid returns the highest-priced bid level.
func (b *Book) BestBid() (Level, bool) {
	return b.bids.Max()
}

// Spread returns best ask minus best bid; absent unless both sides are
// non-empty.
func (b *Book) Spread() (decimal.Decimal, bool) {
	ask, okAsk := b.asks.Min()
	bid, okBid := b.bids.Max()
	if !okAsk || !okBid {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// SpreadBPS returns the spread as basis points of the best bid; absent
// unless both sides are non-empty and the best bid is positive.
func (b *Book) SpreadBPS() (decimal.Decimal, bool) {
	ask, okAsk := b.asks.Min()
	bid, okBid := b.bids.Max()
	if !okAsk || !okBid || !bid.Price.IsPositive() {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price).Div(bid.Price).Mul(ten4), true
}

// MidPrice returns the arithmetic mean of best ask and best bid.
func (b *Book) MidPrice() (decimal.Decimal, bool) {
	ask, okAsk := b.asks.Min()
	bid, okBid := b.bids.Max()
	if !okAsk || !okBid {
		return decimal.Decimal{}, false
	}
	return ask.Price.Add(bid.Price).Div(decimal.NewFromInt(2)), true
}

// TopAsks returns up to n ask levels, best (lowest price) first.
func (b *Book) TopAsks(n int) []Level {
	if n <= 0 {
		return nil
	}
	out := make([]Level, 0, n)
	b.asks.Ascend(func(lv Level) bool {
		out = append(out, lv)
		return len(out) < n
	})
	return out
}

// TopBids returns up to n bid levels, best (highest price) first.
func (b *Book) TopBids(n int) []Level {
	if n <= 0 {
		return nil
	}
	out := make([]Level, 0, n)
	b.bids.Descend(func(lv Level) bool {
		out = append(out, lv)
		return len(out) < n
	})
	return out
}

// AllAsks returns the full ask depth, best first.
func (b *Book) AllAsks() []Level {
	out := make([]Level, 0, b.asks.Len())
	b.asks.Ascend(func(lv Level) bool {
		out = append(out, lv)
		return true
	})
	return out
}

// AllBids returns the full bid depth, best first.
func (b *Book) AllBids() []Level {
	out := make([]Level, 0, b.bids.Len())
	b.bids.Descend(func(lv Level) bool {
		out = append(out, lv)
		return true
	})
	return out
}

// AskDepth returns the number of distinct ask price levels.
func (b *Book) AskDepth() int {
	return b.asks.Len()
}

// BidDepth returns the number of distinct bid price levels.
func (b *Book) BidDepth() int {
	return b.bids.Len()
}

// TotalAskVolume sums the sizes of every ask level.
func (b *Book) TotalAskVolume() decimal.Decimal {
	total := decimal.Zero
	b.asks.Ascend(func(lv Level) bool {
		total = total.Add(lv.Size)
		return true
	})
	return total
}

// TotalBidVolume sums the sizes of every bid level.
func (b *Book) TotalBidVolume() decimal.Decimal {
	total := decimal.Zero
	b.bids.Descend(func(lv Level) bool {
		total = total.Add(lv.Size)
		return true
	})
	return total
}

// AskVolumeToPrice sums ask sizes at prices less than or equal to p:
// the liquidity available buying up to that price.
func (b *Book) AskVolumeToPrice(p decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	b.asks.Ascend(func(lv Level) bool {
		if lv.Price.GreaterThan(p) {
			return false
		}
		total = total.Add(lv.Size)
		return true
	})
	return total
}

// BidVolumeToPrice sums bid sizes at prices greater than or equal to p:
// the liquidity available selling down to that price.
func (b *Book) BidVolumeToPrice(p decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	b.bids.Descend(func(lv Level) bool {
		if lv.Price.LessThan(p) {
			return false
		}
		total = total.Add(lv.Size)
		return true
	})
	return total
}
