// Package ws provides the production price-feed client. The feed is a
// Firebase realtime-database WebSocket: a control handshake announces the
// session id, a query subscription at the root path starts the stream, and
// data frames carry {symbol: price} maps at the "ticks" path. The server
// expects a literal "0" keep-alive from the client every 45 seconds.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signal-systemv1/internal/model"
)

const keepAliveInterval = 45 * time.Second

// frame is the envelope shared by control and data messages.
type frame struct {
	T string     `json:"t"`
	D frameInner `json:"d"`
}

type frameInner struct {
	T string    `json:"t,omitempty"`
	D frameData `json:"d,omitempty"`
	B frameBody `json:"b,omitempty"`
}

type frameData struct {
	S string `json:"s,omitempty"` // session/client id in handshake frames
}

type frameBody struct {
	P string          `json:"p,omitempty"` // path
	D json.RawMessage `json:"d,omitempty"` // payload at that path
}

// Config holds configuration for the feed client.
type Config struct {
	// URL of the realtime-database WebSocket endpoint.
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Ingest connects to the feed and pushes model.Tick values into tickCh.
// Same external interface as internal/marketdata/wssim.Ingest.
type Ingest struct {
	cfg Config

	// Optional hooks.
	OnReconnect func()
	OnTick      func(t time.Time)
	OnConnected func(up bool)
	OnDropped   func()
}

// New creates a new Ingest. Returns an error if the URL is unparseable.
func New(cfg Config) (*Ingest, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	return &Ingest{cfg: cfg}, nil
}

// Start connects to the feed and streams ticks into tickCh. Blocks until ctx
// is cancelled. Reconnects automatically on disconnect.
func (ing *Ingest) Start(ctx context.Context, tickCh chan<- model.Tick) error {
	delay := ing.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := ing.runOnce(ctx, tickCh)
		if err == nil {
			return nil
		}

		if ing.OnConnected != nil {
			ing.OnConnected(false)
		}
		log.Printf("[ws] disconnected (%v), reconnecting in %s...", err, delay)
		if ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > ing.cfg.MaxReconnectDelay {
			delay = ing.cfg.MaxReconnectDelay
		}
	}
}

func (ing *Ingest) runOnce(ctx context.Context, tickCh chan<- model.Tick) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, ing.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[ws] connected to %s", ing.cfg.URL)
	if ing.OnConnected != nil {
		ing.OnConnected(true)
	}

	// Writes come from both the keep-alive loop and the subscribe reply.
	var writeMu sync.Mutex
	send := func(payload []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
				conn.Close()
				return
			case <-ticker.C:
				if err := send([]byte("0")); err != nil {
					log.Printf("[ws] keep-alive failed: %v", err)
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Printf("[ws] parse error: %v (raw: %s)", err, raw)
			continue
		}

		switch {
		case f.T == "c" && f.D.T == "h":
			// Handshake: reply with a root query subscription bound to the
			// announced session id.
			sub := map[string]any{
				"t": "d",
				"d": map[string]any{
					"r": 1,
					"a": "q",
					"b": map[string]any{"p": "/", "h": f.D.D.S},
				},
			}
			payload, _ := json.Marshal(sub)
			if err := send(payload); err != nil {
				return err
			}
			log.Printf("[ws] subscribed with session id %s", f.D.D.S)

		case f.T == "d" && f.D.B.P == "ticks":
			ing.handleTicks(f.D.B.D, tickCh)
		}
	}
}

func (ing *Ingest) handleTicks(payload json.RawMessage, tickCh chan<- model.Tick) {
	var prices map[string]float64
	if err := json.Unmarshal(payload, &prices); err != nil {
		log.Printf("[ws] malformed tick payload: %v (raw: %s)", err, payload)
		return
	}

	now := time.Now().UTC()
	minute := now.Truncate(time.Minute)
	if ing.OnTick != nil {
		ing.OnTick(now)
	}

	for pair, price := range prices {
		if pair == "" {
			continue
		}
		tick := model.Tick{Pair: pair, Price: price, Minute: minute}
		select {
		case tickCh <- tick:
		default:
			log.Println("[ws] tickCh full, dropping tick")
			if ing.OnDropped != nil {
				ing.OnDropped()
			}
		}
	}
}
