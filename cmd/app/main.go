package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/Domenick1991/barberbooking/api"
	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/bootstrap"
	"github.com/Domenick1991/barberbooking/internal/cache"
	"github.com/Domenick1991/barberbooking/internal/dispatcher"
	"github.com/Domenick1991/barberbooking/internal/kafka"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/service/conversation"
	"github.com/Domenick1991/barberbooking/internal/service/ledger"
	"github.com/Domenick1991/barberbooking/internal/service/providers"
	"github.com/Domenick1991/barberbooking/internal/service/roster"
	"github.com/Domenick1991/barberbooking/internal/session"
	"github.com/Domenick1991/barberbooking/internal/transport/bale"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStorage(ctx, cfg.Database)
	if err != nil {
		lg.Fatal("open storage", zap.Error(err))
	}
	defer st.Close()

	cal, clk, err := bootstrap.NewCalendar(cfg.Calendar, st, lg)
	if err != nil {
		lg.Fatal("init calendar", zap.Error(err))
	}

	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()
	redisUp := redisClient.Ping(ctx).Err() == nil
	if !redisUp {
		lg.Warn("redis unavailable, running without provider cache and slot locks", zap.String("addr", cfg.Redis.Addr))
	}
	redisCache := cache.NewRedisCache(redisClient, cfg.Booking.ProvidersTTL())

	var providerCache providers.Cache
	ledgerOpts := []ledger.Option{ledger.WithLogger(lg)}
	if redisUp {
		providerCache = redisCache
		ledgerOpts = append(ledgerOpts, ledger.WithLocker(redisCache, cfg.Booking.SlotLockTTL()))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			lg.Warn("kafka not reachable, booking events will be dropped", zap.Error(err))
		}
		ledgerOpts = append(ledgerOpts, ledger.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}

	directory := providers.NewProviderService(st.Providers, providerCache, lg)
	importer := roster.NewImporter(st.Providers, cal, directory, clk, cfg.Roster.CSVPath, lg)
	bookings := ledger.New(st.Bookings, cal.Hours(), ledgerOpts...)

	var store session.Store = session.NewMemoryStore()
	if cfg.Booking.SessionStoreBackend == "redis" {
		if !redisUp {
			lg.Fatal("session store is redis but redis is unavailable")
		}
		store = session.NewRedisStore(redisClient, cfg.Booking.SessionTTL())
	}

	if _, err := os.Stat(cfg.Roster.CSVPath); err == nil {
		res, err := importer.Reload(ctx)
		if err != nil {
			lg.Fatal("import roster", zap.Error(err))
		}
		lg.Info("roster imported", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	} else {
		res, err := cal.Regenerate(ctx, clk.Now())
		if err != nil {
			lg.Fatal("regenerate calendar", zap.Error(err))
		}
		lg.Info("calendar regenerated", zap.Int64("inserted", res.Inserted), zap.Int64("deleted", res.Deleted))
	}

	machine := conversation.New(store, cal, bookings, directory, clk,
		conversation.WithAdmin(cfg.Bot.AdminUserID, importer),
		conversation.WithInvoice(conversation.InvoiceSettings{
			Title:      cfg.Booking.InvoiceTitle,
			PriceLabel: cfg.Booking.InvoicePriceLabel,
			Currency:   cfg.Booking.InvoiceCurrency,
			Amount:     cfg.Booking.InvoiceAmount,
		}),
		conversation.WithLogger(lg),
	)

	bot, err := bale.New(cfg.Bot, lg)
	if err != nil {
		lg.Fatal("connect bot", zap.Error(err))
	}
	disp := dispatcher.New(machine, bot, cfg.Worker.DispatcherWorkers, cfg.Worker.QueueSize, lg)

	handlers := api.Handlers{
		Providers:  api.NewProviderHandler(directory),
		Bookings:   api.NewBookingHandler(bookings),
		Calendar:   api.NewCalendarHandler(cal, importer, clk),
		AdminToken: cfg.HTTP.AdminToken,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return disp.Run(ctx) })

	if cfg.Bot.Mode == "webhook" {
		handlers.Webhook = api.NewWebhookHandler(bot, disp, cfg.Bot.WebhookSecret)
	} else {
		g.Go(func() error { return bot.Poll(ctx, disp) })
	}

	g.Go(func() error {
		return bootstrap.Run(ctx, cfg.HTTP.Address, api.NewRouter(handlers, lg))
	})

	lg.Info("barber booking bot started", zap.String("mode", cfg.Bot.Mode), zap.String("http", cfg.HTTP.Address))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("server error", zap.Error(err))
	}
	lg.Info("shut down")
}
