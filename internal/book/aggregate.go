package book

import (
	"github.com/shopspring/decimal"
)

// AggregateAsks groups ask levels into tick-sized buckets, summing
// sizes. Ask prices round up so aggregated quotes never cross the
// spread. Input must be best-first; output preserves that order. A
// non-positive tick returns the input unchanged.
func AggregateAsks(levels []Level, tick decimal.Decimal) []Level {
	return aggregate(levels, tick, true)
}

// AggregateBids groups bid levels into tick-sized buckets, summing
// sizes. Bid prices round down. Input must be best-first; output
// preserves that order.
func AggregateBids(levels []Level, tick decimal.Decimal) []Level {
	return aggregate(levels, tick, false)
}

func aggregate(levels []Level, tick decimal.Decimal, roundUp bool) []Level {
	if len(levels) == 0 || !tick.IsPositive() {
		return levels
	}

	// Input is sorted best-first, so bucketed prices arrive in order
	// and merging only ever touches the last output level.
	out := make([]Level, 0, len(levels))
	for _, lv := range levels {
		q := lv.Price.Div(tick)
		if roundUp {
			q = q.Ceil()
		} else {
			q = q.Floor()
		}
		bucket := q.Mul(tick)

		if n := len(out); n > 0 && out[n-1].Price.Equal(bucket) {
			out[n-1].Size = out[n-1].Size.Add(lv.Size)
		} else {
			out = append(out, Level{Price: bucket, Size: lv.Size})
		}
	}
	return out
}
