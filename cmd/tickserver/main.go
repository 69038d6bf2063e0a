// cmd/tickserver — Demo WebSocket tick server.
// Broadcasts simulated forex ticks for running the collector in staging mode
// without access to the production feed.
//
// Tick JSON shape is identical to model.Tick:
//
//	{"pair":"EURUSD","price":1.08542,"minute":"..."}
//
// Config (env vars):
//
//	TICK_SERVER_ADDR  — listen address  (default: ":8081")
//	TICK_PAIRS        — comma-separated pairs (default: "EURUSD,GBPUSD,USDJPY")
//	TICK_INTERVAL_MS  — broadcast interval milliseconds (default: "500")
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// tickMsg mirrors model.Tick for JSON serialisation.
type tickMsg struct {
	Pair   string    `json:"pair"`
	Price  float64   `json:"price"`
	Minute time.Time `json:"minute"`
}

// instrument holds per-pair simulation state.
type instrument struct {
	Pair  string
	Price float64
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client — drop tick
		}
	}
}

// ─── WebSocket handler ────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[tickserver] upgrade error: %v", err)
			return
		}
		log.Printf("[tickserver] client connected: %s", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[tickserver] client disconnected: %s", r.RemoteAddr)
		}()

		// Write pump: sends tick JSON to this client.
		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ─── Tick generator ──────────────────────────────────────────────────────────

// walkPrice applies a tiny random walk (±0.05%) to simulate price movement.
func walkPrice(price float64) float64 {
	pct := (rand.Float64()*0.1 - 0.05) / 100.0
	newPrice := price * (1 + pct)
	if newPrice < 0.0001 {
		newPrice = 0.0001
	}
	return newPrice
}

func runGenerator(h *hub, instruments []instrument, intervalMs int) {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		minute := time.Now().UTC().Truncate(time.Minute)
		for i := range instruments {
			instruments[i].Price = walkPrice(instruments[i].Price)
			msg := tickMsg{
				Pair:   instruments[i].Pair,
				Price:  instruments[i].Price,
				Minute: minute,
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			h.broadcast(b)
		}
	}
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tickserver] starting demo tick server...")

	addr := envOrDefault("TICK_SERVER_ADDR", ":8081")
	pairsEnv := envOrDefault("TICK_PAIRS", "EURUSD,GBPUSD,USDJPY")
	intervalMs := envIntOrDefault("TICK_INTERVAL_MS", 500)

	instruments := parseInstruments(pairsEnv)
	if len(instruments) == 0 {
		log.Fatalf("[tickserver] no pairs configured via TICK_PAIRS")
	}
	log.Printf("[tickserver] pairs: %+v", instruments)
	log.Printf("[tickserver] broadcast interval: %dms", intervalMs)

	h := newHub()
	go runGenerator(h, instruments, intervalMs)

	http.HandleFunc("/ws", wsHandler(h))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"tickserver"}`)
	})

	log.Printf("[tickserver] listening on %s  (WebSocket: ws://localhost%s/ws)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[tickserver] server error: %v", err)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func parseInstruments(s string) []instrument {
	defaultPrices := map[string]float64{
		"EURUSD": 1.0850,
		"GBPUSD": 1.2700,
		"USDJPY": 148.50,
		"AUDUSD": 0.6550,
		"USDCAD": 1.3600,
	}

	var result []instrument
	for _, part := range strings.Split(s, ",") {
		pair := strings.TrimSpace(part)
		if pair == "" {
			continue
		}
		price := defaultPrices[pair]
		if price == 0 {
			price = 1.0
		}
		result = append(result, instrument{Pair: pair, Price: price})
	}
	return result
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
