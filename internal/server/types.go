package server

// LevelPayload is one price level on the wire, with a running
// cumulative size from the top of the side.
type LevelPayload struct {
	Price      string `json:"price"`
	Size       string `json:"size"`
	Cumulative string `json:"cumulative"`
}

// SummaryPayload is the derived view of one book.
type SummaryPayload struct {
	MarketID       string  `json:"market_id"`
	Offset         uint64  `json:"offset"`
	Nonce          uint64  `json:"nonce"`
	Timestamp      int64   `json:"timestamp"`
	BestBid        *string `json:"best_bid,omitempty"`
	BestAsk        *string `json:"best_ask,omitempty"`
	Spread         *string `json:"spread,omitempty"`
	SpreadBPS      *string `json:"spread_bps,omitempty"`
	MidPrice       *string `json:"mid_price,omitempty"`
	BidDepth       int     `json:"bid_depth"`
	AskDepth       int     `json:"ask_depth"`
	TotalBidVolume string  `json:"total_bid_volume"`
	TotalAskVolume string  `json:"total_ask_volume"`
}

// DepthPayload is the top-of-book depth for one market.
type DepthPayload struct {
	MarketID string         `json:"market_id"`
	Offset   uint64         `json:"offset"`
	Bids     []LevelPayload `json:"bids"`
	Asks     []LevelPayload `json:"asks"`
}

// BookListing is one entry in the market index.
type BookListing struct {
	MarketID string `json:"market_id"`
	Offset   uint64 `json:"offset"`
	BidDepth int    `json:"bid_depth"`
	AskDepth int    `json:"ask_depth"`
}

// StreamMessage wraps a summary pushed over the websocket.
type StreamMessage struct {
	Type string         `json:"type"`
	Book SummaryPayload `json:"book"`
}

type errorPayload struct {
	Error string `json:"error"`
}
