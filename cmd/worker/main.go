package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/bootstrap"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/notify"
	"github.com/Domenick1991/barberbooking/internal/service/providers"
	"github.com/Domenick1991/barberbooking/internal/transport/bale"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := bootstrap.OpenStorage(ctx, cfg.Database)
	if err != nil {
		lg.Fatal("open storage", zap.Error(err))
	}
	defer st.Close()

	cal, clk, err := bootstrap.NewCalendar(cfg.Calendar, st, lg)
	if err != nil {
		lg.Fatal("init calendar", zap.Error(err))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		bot, err := bale.New(cfg.Bot, lg)
		if err != nil {
			lg.Fatal("connect bot", zap.Error(err))
		}
		sender := notify.NewSender(providers.NewProviderService(st.Providers, nil, lg), bot, lg)

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingEventsTopic, lg)
		defer consumer.Close()

		go func() {
			if err := consumer.ConsumeBookingEvents(ctx, sender.Send); err != nil {
				lg.Error("consumer stopped", zap.Error(err))
			}
		}()
	} else {
		lg.Info("no kafka brokers configured, provider notifications disabled")
	}

	regenerate := func() {
		res, err := cal.Regenerate(ctx, clk.Now())
		if err != nil {
			lg.Error("regenerate calendar", zap.Error(err))
			return
		}
		if res.Inserted > 0 || res.Deleted > 0 || res.Completed > 0 {
			lg.Info("calendar regenerated",
				zap.Int64("inserted", res.Inserted),
				zap.Int64("deleted", res.Deleted),
				zap.Int64("completed", res.Completed))
		}
	}
	regenerate()

	ticker := time.NewTicker(cfg.Worker.RegenerateInterval())
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			regenerate()
		case s := <-sig:
			lg.Info("shutting down", zap.String("signal", s.String()))
			return
		}
	}
}
