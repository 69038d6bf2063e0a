package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/blackout"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notify"
	sigengine "signal-systemv1/internal/signal"
	"signal-systemv1/internal/store"
	redisstore "signal-systemv1/internal/store/redis"
	sqlitestore "signal-systemv1/internal/store/sqlite"
)

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[signalbot] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[signalbot] config: %v", err)
	}
	logger.Init("signalbot", logLevel(cfg.LogLevel))

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	health.SetFeedConnected(true) // this binary has no feed of its own
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Stores: sqlite is required, redis is the optional hot tier ----
	sqlStore, err := sqlitestore.New(sqlitestore.Config{Path: cfg.SQLite.Path})
	if err != nil {
		log.Fatalf("[signalbot] sqlite init failed: %v", err)
	}
	defer sqlStore.Close()
	health.SetSQLiteOK(true)

	var candles store.CandleStore = sqlStore
	redisStore, err := redisstore.New(redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Printf("[signalbot] WARNING: redis init failed: %v (reading candles from sqlite)", err)
		health.SetRedisConnected(false)
		redisStore = nil
	} else {
		health.SetRedisConnected(true)
		candles = &store.Tiered{Hot: redisStore, Durable: sqlStore}
	}

	if redisStore != nil {
		health.StartLivenessChecker(ctx, redisStore.Client(), sqlStore.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, sqlStore.DB(), 10*time.Second)
	}

	// ---- Notifier: telegram, or log-only when no token is configured ----
	var notifier notify.Notifier
	if cfg.Telegram.Token != "" {
		tg, terr := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if terr != nil {
			log.Fatalf("[signalbot] telegram init failed: %v", terr)
		}
		notifier = tg
		log.Println("[signalbot] telegram notifier ready")
	} else {
		notifier = notify.NewLogNotifier()
		log.Println("[signalbot] no telegram token, logging notifications only")
	}

	// ---- Signal engine ----
	window := blackout.Window{
		Enabled:   cfg.Blackout.Enabled,
		StartHour: cfg.Blackout.StartHour,
		EndHour:   cfg.Blackout.EndHour,
	}

	gen := sigengine.NewGenerator(candles, sigengine.GeneratorConfig{
		RSIPeriod:     cfg.Indicators.RSIPeriod,
		EMAPeriod:     cfg.Indicators.EMAPeriod,
		RSIOversold:   cfg.Indicators.RSIOversold,
		RSIOverbought: cfg.Indicators.RSIOverbought,
		MACDPositive:  cfg.Indicators.MACDPositive,
		MACDNegative:  cfg.Indicators.MACDNegative,
	})

	mgr := sigengine.NewManager(candles, notifier, sqlStore, sigengine.ManagerConfig{
		Cooldown:          cfg.Signal.Cooldown,
		ExpirationMinutes: cfg.Signal.ExpirationMinutes,
		MaxGaleLevel:      cfg.MaxGaleLevel(),
		OneSignalAtATime:  cfg.Signal.OneSignalAtATime,
		Window:            window,
	})
	mgr.OnOpen = func(pair string, direction model.Direction) {
		prom.SignalsOpened.WithLabelValues(pair, string(direction)).Inc()
		prom.OpenSignals.Set(float64(mgr.OpenCount()))
	}
	mgr.OnEscalate = prom.GaleEscalations.Inc
	mgr.OnResolve = func(result string) {
		prom.SignalsResolved.WithLabelValues(result).Inc()
		prom.OpenSignals.Set(float64(mgr.OpenCount()))
	}

	sch := sigengine.NewScheduler(gen, mgr, sigengine.SchedulerConfig{
		Pairs:                 cfg.Pairs,
		Interval:              cfg.AnalysisInterval,
		OneSignalAtATime:      cfg.Signal.OneSignalAtATime,
		Window:                window,
		SuspendEvalInBlackout: cfg.Blackout.SuspendEvaluation,
	})
	sch.OnCycle = func(d time.Duration) {
		prom.AnalyzeCycleDur.Observe(d.Seconds())
	}

	go sch.Run(ctx)
	slog.Info("signal engine running",
		"pairs", cfg.Pairs,
		"interval", cfg.AnalysisInterval.String(),
		"expiration_minutes", cfg.Signal.ExpirationMinutes,
		"max_gale", cfg.MaxGaleLevel(),
		"blackout", window.String())

	sig := <-sigCh
	log.Printf("[signalbot] received %v, shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	if redisStore != nil {
		redisStore.Close()
	}
	log.Println("[signalbot] stopped")
}
