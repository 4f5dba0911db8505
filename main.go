package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patruff/moltapp-sub001/internal/api"
	"github.com/patruff/moltapp-sub001/internal/audit"
	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/executor"
	"github.com/patruff/moltapp-sub001/internal/health"
	"github.com/patruff/moltapp-sub001/internal/market"
	"github.com/patruff/moltapp-sub001/internal/monitor"
	"github.com/patruff/moltapp-sub001/internal/order"
	"github.com/patruff/moltapp-sub001/internal/persistence"
	"github.com/patruff/moltapp-sub001/pkg/cache"
	"github.com/patruff/moltapp-sub001/pkg/config"
	"github.com/patruff/moltapp-sub001/pkg/db"
	"github.com/patruff/moltapp-sub001/pkg/i18n"
	"github.com/patruff/moltapp-sub001/pkg/identity"
	marketbinance "github.com/patruff/moltapp-sub001/pkg/market/binance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}
	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Println(i18n.Get("Starting"))

	if err := cfg.Validate(); err != nil {
		log.Fatalf(i18n.Get("ConfigInvalid"), err)
	}
	log.Printf(i18n.Get("ConfigLoaded"), cfg.Port, cfg.PriceFeed)

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	nodeID, err := identity.NodeID()
	if err != nil {
		nodeID = "unknown"
	}
	log.Printf(i18n.Get("NodeID"), nodeID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()
	prices := cache.NewPriceCache()
	sysMetrics := monitor.NewSystemMetrics()
	log.Println(i18n.Get("SystemMetricsInit"))

	// Audit trail: JSON file (+ DB rows when persistence is on), drained off the tick path
	sinks := audit.Multi{}
	if cfg.AuditLogPath != "" {
		logger, syncLog, err := audit.NewFileLogger(cfg.AuditLogPath, false)
		if err != nil {
			log.Printf(i18n.Get("AuditLogOpenFail"), err)
		} else {
			defer syncLog()
			sinks = append(sinks, audit.NewZapSink(logger))
		}
	}

	var (
		database  *db.Database
		writer    *persistence.BatchWriter
		persister engine.Persister
	)
	if cfg.EnablePersistence {
		log.Printf(i18n.Get("UsingDBPath"), cfg.DBPath)
		database, err = db.New(cfg.DBPath)
		if err != nil {
			log.Fatalf(i18n.Get("DBInitFailed"), err)
		}
		defer database.Close()
		if err := db.ApplyMigrations(database); err != nil {
			log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
		}
		writer = persistence.NewBatchWriter(database.DB, 100, 500*time.Millisecond)
		persister = persistence.NewOrderWriter(writer)
		sinks = append(sinks, audit.NewDBSink(writer))
	} else {
		log.Println(i18n.Get("PersistenceOff"))
	}
	auditSink := audit.NewAsync(sinks, 4096)

	eng := engine.New(engine.Config{
		Feed:            market.BusSource{Bus: bus},
		Bus:             bus,
		Audit:           auditSink,
		Persister:       persister,
		Prices:          prices,
		Observer:        sysMetrics,
		HistoryCapacity: cfg.HistoryCapacity,
		TickBuffer:      cfg.TickBuffer,
		Meta: engine.SystemStatus{
			NodeID:    nodeID,
			PriceFeed: cfg.PriceFeed,
			Symbols:   cfg.Symbols,
			Version:   buildVersion,
		},
	})

	// Re-arm orders that were live at the last shutdown; seed only a fresh book
	restored := 0
	if database != nil {
		views, err := persistence.LoadOpenOrders(ctx, database)
		if err != nil {
			log.Printf(i18n.Get("OrdersRestoreError"), err)
		} else {
			restored = eng.Restore(views)
		}
	}
	if cfg.SeedFile != "" && restored == 0 {
		seedOrders(ctx, eng, cfg.SeedFile)
	}

	// Downstream execution
	var paper *executor.AsyncExecutor
	if cfg.EnablePaperExecutor {
		paper = executor.NewAsyncExecutor(executor.NewPaperExecutor(executor.PaperConfig{
			FeeRate:      cfg.PaperFeeRate,
			SlippageBps:  cfg.PaperSlippageBps,
			LatencyMinMs: 20,
			LatencyMaxMs: 120,
		}), eng, bus, cfg.PaperWorkers)
		triggers, unsub := bus.Subscribe(events.EventOrderTriggered, 1024)
		defer unsub()
		go paper.Run(ctx, triggers)
	}

	// Monitoring and alerts
	mon := &monitor.Monitor{
		Bus:         bus,
		Sink:        monitor.LogSink{},
		Metrics:     sysMetrics,
		Engine:      eng,
		Prices:      prices,
		Interval:    5 * time.Second,
		MaxPriceAge: 30 * time.Second,
	}
	mon.Start(ctx)

	// NATS bridge
	var bridge *events.NATSBridge
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, "trigger-engine-"+nodeID)
		if err != nil {
			log.Printf(i18n.Get("NATSConnectFailed"), err)
		} else {
			defer nc.Close()
			bridge = events.NewNATSBridge(bus, nc, cfg.NATSSubjectPrefix)
			bridge.Start(ctx)
			log.Printf(i18n.Get("NATSBridgeEnabled"), cfg.NATSURL)
		}
	}

	// Evaluation loop subscribes before the feed starts publishing
	if err := eng.Start(ctx); err != nil {
		log.Fatalf(i18n.Get("EngineStartFailed"), err)
	}

	switch cfg.PriceFeed {
	case config.FeedBinance:
		feed := &market.BinanceFeed{
			Client:  marketbinance.NewClient(cfg.BinanceAPIKey, cfg.BinanceTestnet),
			Stream:  marketbinance.NewStreamClient(cfg.BinanceTestnet),
			Bus:     bus,
			Cache:   prices,
			Symbols: cfg.Symbols,
		}
		feed.Start(ctx)
		log.Println(i18n.Get("BinanceFeedStarted"))
	default:
		feed := &market.MockFeed{
			Bus:        bus,
			Cache:      prices,
			Symbols:    cfg.Symbols,
			StartPrice: cfg.MockStartPrice,
			Step:       cfg.MockStep,
			Interval:   cfg.MockInterval,
		}
		feed.Start(ctx)
		log.Printf(i18n.Get("MockFeedStarted"), len(feed.Symbols))
	}

	// gRPC health
	healthSrv := health.New(eng, time.Second)
	go healthSrv.Watch(ctx)
	go func() {
		if err := healthSrv.ListenAndServe(":" + cfg.GRPCPort); err != nil {
			log.Printf(i18n.Get("GRPCServerError"), err)
		}
	}()

	// API
	server := api.NewServer(eng, bus, sysMetrics, cfg.JWTSecret, api.Options{RunContext: ctx})
	httpSrv := &http.Server{Addr: ":" + cfg.Port, Handler: server.Router}
	go func() {
		log.Printf(i18n.Get("ServerListening"), cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf(i18n.Get("APIServerError"), err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println(i18n.Get("ShuttingDown"))

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = httpSrv.Shutdown(shutdownCtx)
	healthSrv.Stop()

	eng.Stop()
	cancel()
	if paper != nil {
		paper.Close()
	}
	if bridge != nil {
		bridge.Wait()
	}
	auditSink.Close()
	if writer != nil {
		_ = writer.Close()
	}
}

func seedOrders(ctx context.Context, eng *engine.Engine, path string) {
	reqs, err := order.LoadSeedFile(path)
	if err != nil {
		log.Printf(i18n.Get("SeedFailed"), err)
		return
	}
	placed := 0
	for i, req := range reqs {
		if _, err := eng.Place(ctx, req); err != nil {
			log.Printf(i18n.Get("SeedOrderFailed"), i, err)
			continue
		}
		placed++
	}
	log.Printf(i18n.Get("SeedLoaded"), placed, path)
}
