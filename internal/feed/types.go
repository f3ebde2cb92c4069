package feed

import (
	"strings"
	"time"
)

// PriceLevel is a single price/size entry as it appears on the wire.
// Both values stay decimal strings until the book parses them; going
// through binary floats would corrupt price ordering and equality.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Snapshot is the complete order book state delivered on subscription.
// It fully replaces whatever the book held before.
type Snapshot struct {
	Asks   []PriceLevel `json:"asks"`
	Bids   []PriceLevel `json:"bids"`
	Offset uint64       `json:"offset"`
	Nonce  uint64       `json:"nonce"`
	Code   int          `json:"code"`
}

// Update is an incremental diff against a previously delivered
// snapshot. A size of "0" removes the level at that price, a positive
// size inserts or replaces it; prices not mentioned are untouched.
type Update struct {
	Asks   []PriceLevel `json:"asks"`
	Bids   []PriceLevel `json:"bids"`
	Offset uint64       `json:"offset"`
	Nonce  uint64       `json:"nonce"`
	Code   int          `json:"code"`
}

// Event is one parsed message from the stream. Exactly one of Snapshot
// or Update is set.
type Event struct {
	MarketID  string
	Timestamp time.Time
	Snapshot  *Snapshot
	Update    *Update
}

// MarketFromChannel extracts the market id from a stream channel string
// such as "order_book:0".
func MarketFromChannel(channel string) (string, bool) {
	_, id, ok := strings.Cut(channel, ":")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SubscribeChannel builds the subscription channel name for a market,
// e.g. "order_book/0".
func SubscribeChannel(marketID string) string {
	return "order_book/" + marketID
}
