package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/marketdata/agg"
	"signal-systemv1/internal/marketdata/bus"
	"signal-systemv1/internal/marketdata/ws"
	"signal-systemv1/internal/marketdata/wssim"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	redisstore "signal-systemv1/internal/store/redis"
	sqlitestore "signal-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[collector] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[collector] config: %v", err)
	}
	if cfg.Feed.Staging {
		log.Println("[collector] *** STAGING MODE — using tickserver feed ***")
	}

	// ---- Pipeline channels ----
	tickCh := make(chan model.Tick, 10000)
	candleCh := make(chan model.Candle, 5000)

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite store (durable tier, required) ----
	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	sqlStore, err := sqlitestore.New(sqlitestore.Config{Path: cfg.SQLite.Path})
	if err != nil {
		log.Fatalf("[collector] sqlite init failed: %v", err)
	}
	defer sqlStore.Close()
	sqlStore.OnBatchCommit = func(d time.Duration) {
		prom.SQLiteBatchDur.Observe(d.Seconds())
	}
	health.SetSQLiteOK(true)
	log.Println("[collector] sqlite store ready")

	// ---- Redis store (hot tier, optional) ----
	redisStore, err := redisstore.New(redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("[collector] WARNING: redis init failed: %v (continuing without redis)", err)
		health.SetRedisConnected(false)
		redisStore = nil
	} else {
		health.SetRedisConnected(true)
		redisStore.OnWrite = func(d time.Duration) {
			prom.RedisWriteDur.Observe(d.Seconds())
		}
		log.Println("[collector] redis store ready")
	}

	if redisStore != nil {
		health.StartLivenessChecker(ctx, redisStore.Client(), sqlStore.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlStore.DB(), 10*time.Second)
	}

	// ---- Fan out completed candles to SQLite + Redis ----
	fanout := bus.New(5000)
	fanout.OnDrop = func(subscriberIdx int) {
		prom.FanoutDrops.WithLabelValues(strconv.Itoa(subscriberIdx)).Inc()
	}

	sqliteCandleCh := fanout.Subscribe()
	var redisCandleCh <-chan model.Candle
	if redisStore != nil {
		redisCandleCh = fanout.Subscribe()
	}
	go fanout.Run(ctx, candleCh)

	go sqlStore.Run(ctx, sqliteCandleCh)
	if redisStore != nil {
		go redisStore.Run(ctx, redisCandleCh)
	}

	// ---- Minute aggregator ----
	aggregator := agg.New()
	aggregator.OnFlush = func(candles int) {
		prom.CandlesTotal.Add(float64(candles))
	}
	go aggregator.Run(ctx, tickCh, candleCh)

	// ---- Feed client ----
	feedDone := make(chan error, 1)
	onTick := func(t time.Time) {
		prom.TicksTotal.Inc()
		health.SetLastTickTime(t)
	}
	if cfg.Feed.Staging {
		ingest, ierr := wssim.New(wssim.Config{URL: cfg.Feed.URL})
		if ierr != nil {
			log.Fatalf("[collector] feed url: %v", ierr)
		}
		ingest.OnReconnect = prom.WSReconnects.Inc
		ingest.OnTick = onTick
		ingest.OnConnected = health.SetFeedConnected
		ingest.OnDropped = prom.DroppedTicks.Inc
		go func() { feedDone <- ingest.Start(ctx, tickCh) }()
	} else {
		ingest, ierr := ws.New(ws.Config{URL: cfg.Feed.URL})
		if ierr != nil {
			log.Fatalf("[collector] feed url: %v", ierr)
		}
		ingest.OnReconnect = prom.WSReconnects.Inc
		ingest.OnTick = onTick
		ingest.OnConnected = health.SetFeedConnected
		ingest.OnDropped = prom.DroppedTicks.Inc
		go func() { feedDone <- ingest.Start(ctx, tickCh) }()
	}

	log.Printf("[collector] pipeline running, feed=%s pairs=%v", cfg.Feed.URL, cfg.Pairs)

	select {
	case sig := <-sigCh:
		log.Printf("[collector] received %v, shutting down...", sig)
	case err := <-feedDone:
		if err != nil {
			log.Printf("[collector] feed stopped: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	if redisStore != nil {
		redisStore.Close()
	}
	log.Println("[collector] stopped")
}
