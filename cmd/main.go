package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"climatemarket/internal/auth"
	"climatemarket/internal/bot"
	"climatemarket/internal/config"
	"climatemarket/internal/events"
	"climatemarket/internal/handlers"
	"climatemarket/internal/ledger"
	"climatemarket/internal/logger"
	"climatemarket/internal/metrics"
	"climatemarket/internal/service"
	"climatemarket/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("climatemarket stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	genesis, err := config.LoadGenesis(cfg.GenesisPath)
	if err != nil {
		return err
	}
	startBlock := cfg.StartBlock
	if genesis.StartBlock > 0 {
		startBlock = genesis.StartBlock
	}

	// Initialize SQLite journal
	log.Info("opening journal", zap.String("path", cfg.DatabasePath))
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Event sinks
	var sinks events.Multi
	if cfg.RedisAddr != "" {
		rdb, err := events.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		sinks = append(sinks, events.NewRedisPublisher(rdb, cfg.RedisChannel))
		log.Info("publishing to redis", zap.String("addr", cfg.RedisAddr), zap.String("channel", cfg.RedisChannel))
	}
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		writer := events.NewKafkaWriter(brokers, cfg.KafkaTopic)
		defer writer.Close()
		sinks = append(sinks, events.NewKafkaPublisher(writer))
		log.Info("publishing to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	state := ledger.NewState(ledger.Options{Admin: genesis.Admin, StartBlock: startBlock})
	rt := service.NewRuntime(state, store, sinks, m, log)

	n, err := rt.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	log.Info("journal replayed", zap.Int("calls", n), zap.Uint64("block", rt.BlockHeight()))

	if err := rt.ApplyGenesis(ctx, genesis); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	worker := service.NewBlockWorker(rt, cfg.BlockInterval)

	g, gctx := errgroup.WithContext(ctx)

	// Telegram bot and channel notifications are optional
	if cfg.TelegramToken != "" {
		tb, err := bot.NewTelebot(cfg.TelegramToken)
		if err != nil {
			return err
		}
		ns := service.NewNotificationService(tb, cfg.ChannelID, rt.Market)
		rt.AddPublisher(ns)
		worker.SetNotifier(ns)

		b := bot.New(tb, rt)
		g.Go(func() error { return b.Run(gctx) })
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, bot disabled")
	}

	g.Go(func() error { return worker.Run(gctx) })

	// API routes with auth middleware
	h := handlers.New(rt, store)
	mux := http.NewServeMux()
	mux.Handle("/api/", auth.Middleware(cfg.APISecret)(http.StripPrefix("/api", h.Router())))

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := metrics.NewServer(cfg.MetricsPort, reg, store.Ping)

	for _, srv := range []*http.Server{apiSrv, metricsSrv} {
		srv := srv
		g.Go(func() error {
			log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info("shutting down", zap.Uint64("block", rt.BlockHeight()))
	return err
}
