// Package wssim provides a WebSocket feed client that connects to a plain
// JSON tick server (e.g. cmd/tickserver) and feeds ticks into the collector
// pipeline.
//
// The expected JSON message format on the wire is identical to model.Tick:
//
//	{"pair":"EURUSD","price":1.08542,"minute":"..."}
//
// This is a drop-in replacement for internal/marketdata/ws without the
// realtime-database framing, used for staging and offline testing.
package wssim

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"signal-systemv1/internal/model"
)

// Config holds configuration for the simulated feed client.
type Config struct {
	// URL of the tick WebSocket server, e.g. "ws://localhost:8081/ws"
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

// Ingest connects to a plain-JSON WebSocket tick server and pushes model.Tick
// values into tickCh. Same external interface as internal/marketdata/ws.Ingest.
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

// Start connects to the tick server and streams ticks into tickCh. Blocks
// until ctx is cancelled. Reconnects automatically on disconnect.
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
		log.Printf("[wssim] disconnected (%v), reconnecting in %s...", err, delay)
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

	log.Printf("[wssim] connected to %s", ing.cfg.URL)
	if ing.OnConnected != nil {
		ing.OnConnected(true)
	}

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
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

		var tick model.Tick
		if err := json.Unmarshal(raw, &tick); err != nil {
			log.Printf("[wssim] parse error: %v (raw: %s)", err, raw)
			continue
		}
		if tick.Pair == "" {
			log.Printf("[wssim] skipping tick with empty pair")
			continue
		}
		if tick.Minute.IsZero() {
			tick.Minute = time.Now().UTC().Truncate(time.Minute)
		}
		if ing.OnTick != nil {
			ing.OnTick(time.Now().UTC())
		}

		select {
		case tickCh <- tick:
		default:
			log.Println("[wssim] tickCh full, dropping tick")
			if ing.OnDropped != nil {
				ing.OnDropped()
			}
		}
	}
}
