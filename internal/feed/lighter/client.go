// Package lighter connects to the Lighter WebSocket stream and turns
// its raw frames into canonical feed events.
package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lighterbook/internal/feed"
)

// Stream message types, as sent by the exchange.
const (
	msgConnected  = "connected"
	msgSubscribed = "subscribed/order_book"
	msgUpdate     = "update/order_book"
)

// Config holds the connection settings for the stream.
type Config struct {
	Host               string
	Path               string
	Markets            []string
	HandshakeTimeout   time.Duration
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	EventBuffer        int
}

// Health carries connection counters for diagnostics.
type Health struct {
	Connected    bool
	MessageCount int64
	ErrorCount   int64
	LastMessage  time.Time
}

// Client is the WebSocket feed client. Run owns the connection and
// republishes parsed snapshots and updates on Events.
type Client struct {
	cfg    Config
	url    string
	events chan *feed.Event
	log    zerolog.Logger
	health atomic.Value // Health
}

type envelope struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel"`
	Timestamp int64           `json:"timestamp"`
	OrderBook json.RawMessage `json:"order_book"`
}

type subscribeMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// New creates a client for the configured host and markets.
func New(cfg Config, log zerolog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		url:    fmt.Sprintf("wss://%s%s", cfg.Host, cfg.Path),
		events: make(chan *feed.Event, cfg.EventBuffer),
		log:    log.With().Str("component", "feed").Logger(),
	}
	c.health.Store(Health{})
	return c
}

// Events returns the channel of parsed feed events. It is closed when
// Run returns.
func (c *Client) Events() <-chan *feed.Event {
	return c.events
}

// Health returns current connection counters.
func (c *Client) Health() Health {
	h, _ := c.health.Load().(Health)
	return h
}

// Run connects and reads the stream until ctx is cancelled,
// reconnecting with exponential backoff on failure. Book state
// recovery after a reconnect comes from the fresh snapshot the
// exchange sends on resubscription.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	bo := newBackoff(c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay)
	for {
		connected, err := c.runConn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			bo.reset()
		}

		delay := bo.next()
		c.log.Warn().Err(err).Dur("retry_in", delay).Msg("stream disconnected, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff yields the reconnect delay: doubling per attempt, capped at
// max, back to base once a connection was established.
type backoff struct {
	base, max time.Duration
	cur       time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max, cur: base}
}

func (b *backoff) next() time.Duration {
	d := b.cur
	b.cur *= 2
	if b.cur > b.max {
		b.cur = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.cur = b.base
}

// runConn reports whether the dial succeeded so Run can distinguish a
// dropped session from a failed attempt.
func (c *Client) runConn(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.bumpErrors()
		return false, fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	// Unblock the read loop when ctx is cancelled.
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	c.setConnected(true)
	defer c.setConnected(false)
	c.log.Info().Str("url", c.url).Msg("stream connected")

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.bumpErrors()
			return true, fmt.Errorf("read frame: %w", err)
		}
		c.bumpMessages()

		if env.Type == msgConnected {
			if err := c.subscribe(conn); err != nil {
				return true, err
			}
			continue
		}

		ev, err := decodeEvent(&env)
		if err != nil {
			c.bumpErrors()
			c.log.Error().Err(err).Str("channel", env.Channel).Msg("bad frame")
			continue
		}
		if ev == nil {
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return true, ctx.Err()
		default:
			c.log.Warn().Str("market", ev.MarketID).Msg("event buffer full, dropping")
		}
	}
}

func (c *Client) subscribe(conn *websocket.Conn) error {
	for _, market := range c.cfg.Markets {
		msg := subscribeMessage{
			Type:    "subscribe",
			Channel: feed.SubscribeChannel(market),
		}
		if err := conn.WriteJSON(msg); err != nil {
			c.bumpErrors()
			return fmt.Errorf("subscribe %s: %w", market, err)
		}
		c.log.Info().Str("market", market).Msg("subscribed")
	}
	return nil
}

// decodeEvent converts a stream envelope into a feed event. Unhandled
// message types yield a nil event.
func decodeEvent(env *envelope) (*feed.Event, error) {
	switch env.Type {
	case msgSubscribed, msgUpdate:
	default:
		return nil, nil
	}

	market, ok := feed.MarketFromChannel(env.Channel)
	if !ok {
		return nil, fmt.Errorf("malformed channel %q", env.Channel)
	}

	ev := &feed.Event{
		MarketID:  market,
		Timestamp: time.UnixMilli(env.Timestamp),
	}

	if env.Type == msgSubscribed {
		var snap feed.Snapshot
		if err := json.Unmarshal(env.OrderBook, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		ev.Snapshot = &snap
		return ev, nil
	}

	var upd feed.Update
	if err := json.Unmarshal(env.OrderBook, &upd); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	ev.Update = &upd
	return ev, nil
}

func (c *Client) setConnected(connected bool) {
	h := c.Health()
	h.Connected = connected
	c.health.Store(h)
}

func (c *Client) bumpMessages() {
	h := c.Health()
	h.MessageCount++
	h.LastMessage = time.Now()
	c.health.Store(h)
}

func (c *Client) bumpErrors() {
	h := c.Health()
	h.ErrorCount++
	c.health.Store(h)
}
