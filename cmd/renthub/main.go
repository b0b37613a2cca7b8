package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"renthub/internal/app/commands"
	bookingapp "renthub/internal/app/handlers/booking"
	pricingapp "renthub/internal/app/handlers/pricing"
	"renthub/internal/app/middleware"
	"renthub/internal/app/outbox"
	"renthub/internal/app/queries"
	"renthub/internal/app/uow"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
	domainmoney "renthub/internal/domain/shared/money"
	"renthub/internal/infra/broker/kafka"
	"renthub/internal/infra/config"
	mongodb "renthub/internal/infra/db/mongo"
	ginserver "renthub/internal/infra/http/gin"
	"renthub/internal/infra/obs"
	infraoutbox "renthub/internal/infra/outbox"
	"renthub/internal/infra/schedule"
	"renthub/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if cfg.StorageMode == "memory" {
		fixturesPath := getenv("LISTINGS_FIXTURES", "")
		if fixturesPath != "" {
			if err := app.loadListingFixtures(ctx, fixturesPath, logger); err != nil {
				logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
			}
		}
	}

	runner := schedule.NewRunner(logger)
	if err := registerSweeps(ctx, runner, cfg, app.lifecycle, logger); err != nil {
		logger.Error("sweep registration failed", "error", err)
		os.Exit(1)
	}
	runner.Start()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		runner.Stop()
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers  ginserver.Handlers
	lifecycle commands.Bus
	listings  domainlisting.Repository
	ready     func() error
	closers   []func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		uowFactory  uow.UoWFactory
		outboxStore outbox.Outbox
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		listingsRepo := mongodb.NewListingRepository(client.DB)
		bookingRepo := mongodb.NewBookingRepository(client.DB)
		uowFactory = mongodb.Factory{DB: client.DB, ListingsRepo: listingsRepo, BookingRepo: bookingRepo}
		app.listings = listingsRepo

		store := infraoutbox.NewStore(client.DB)
		outboxStore = store

		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		app.closers = append(app.closers, producer.Close)

		worker := &infraoutbox.Worker{
			Store:       store,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()

		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	case "memory":
		listingsRepo := memory.NewListingRepository()
		bookingRepo := memory.NewBookingRepository()
		uowFactory = memory.Factory{ListingsRepo: listingsRepo, BookingRepo: bookingRepo}
		app.listings = listingsRepo
		outboxStore = memory.NewOutbox()
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}

	promos := memory.NewPromoSource()
	seedPromoCodes(promos, getenv("PROMO_CODES", ""), logger)
	calculator := domainpricing.Engine{Promos: promos}

	hooks := memory.NewHookRecorder()

	requestBus := commands.NewInMemoryBus()
	commands.RegisterHandler(requestBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		Pricing: calculator,
		Outbox:  outboxStore,
		Encoder: outbox.JSONEventEncoder{},
	})
	requestCommands := middleware.ChainCommands(
		requestBus,
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxStore),
	)

	transitionHandler := &bookingapp.TransitionHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxStore,
		Encoder:    outbox.JSONEventEncoder{},
		Hooks:      hooks.Hooks(),
		Logger:     logger,
	}
	sweepHandler := &bookingapp.SweepHandler{
		UoWFactory:  uowFactory,
		Transitions: transitionHandler,
		Logger:      logger,
	}

	lifecycleBus := commands.NewInMemoryBus()
	commands.RegisterHandler(lifecycleBus, bookingapp.TransitionCommand{}.Key(), transitionHandler)
	commands.RegisterHandler(lifecycleBus, bookingapp.ExpirePendingPaymentsCommand{}.Key(), bookingapp.ExpirePaymentsHandler(sweepHandler))
	commands.RegisterHandler(lifecycleBus, bookingapp.AutoApproveReturnsCommand{}.Key(), bookingapp.ApproveReturnsHandler(sweepHandler))
	lifecycleCommands := middleware.ChainCommands(lifecycleBus, middleware.OutboxFlush(outboxStore))
	app.lifecycle = lifecycleCommands

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.StateHistoryQuery{}.Key(), &bookingapp.StateHistoryHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.AvailableActionsQuery{}.Key(), &bookingapp.AvailableActionsHandler{UoWFactory: uowFactory})
	queries.RegisterHandler(queryBus, pricingapp.QuoteQuery{}.Key(), &pricingapp.QuoteHandler{UoWFactory: uowFactory, Pricing: calculator})
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{
			Requests:    requestCommands,
			Transitions: lifecycleCommands,
			Queries:     queryBusWithMiddleware,
		},
		Pricing: ginserver.PricingHandler{
			Queries: queryBusWithMiddleware,
		},
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.Warn("shutdown cleanup failed", "error", err)
		}
	}
}

func registerSweeps(ctx context.Context, runner *schedule.Runner, cfg config.Config, bus commands.Bus, logger *slog.Logger) error {
	if err := runner.Register(cfg.ExpireSweepSpec, "expire-pending-payments", func() {
		cmd := bookingapp.ExpirePendingPaymentsCommand{Timeout: cfg.PaymentTimeout}
		if _, err := commands.Dispatch[bookingapp.ExpirePendingPaymentsCommand, bookingapp.SweepResult](ctx, bus, cmd); err != nil {
			logger.Error("payment expiry sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	return runner.Register(cfg.ReturnSweepSpec, "auto-approve-returns", func() {
		cmd := bookingapp.AutoApproveReturnsCommand{Window: cfg.InspectionWindow}
		if _, err := commands.Dispatch[bookingapp.AutoApproveReturnsCommand, bookingapp.SweepResult](ctx, bus, cmd); err != nil {
			logger.Error("return approval sweep failed", "error", err)
		}
	})
}

// seedPromoCodes parses "CODE:PERCENT,CODE:PERCENT" pairs.
func seedPromoCodes(promos *memory.PromoSource, raw string, logger *slog.Logger) {
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, pctStr, found := strings.Cut(pair, ":")
		if !found {
			logger.Warn("promo code entry malformed, skipping", "entry", pair)
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(pctStr))
		if err != nil || pct <= 0 || pct > 100 {
			logger.Warn("promo code percent invalid, skipping", "entry", pair)
			continue
		}
		promos.Set(strings.TrimSpace(code), pct)
	}
}

func (a *application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		l, err := domainlisting.New(domainlisting.CreateParams{
			ID:          domainlisting.ListingID(fx.ID),
			OwnerID:     fx.Owner,
			Title:       fx.Title,
			Description: fx.Description,
			Pricing:     fx.pricingConfig(),
			Cancellation: domainlisting.CancellationPolicy{
				PolicyID:      fx.CancellationPolicyID,
				RefundPercent: fx.CancellationRefundPercent,
			},
			Now: now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		l.Activate(now)
		if err := a.listings.Save(ctx, l); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", l.ID)
	}
	return nil
}

type listingFixture struct {
	ID                        string `json:"id"`
	Owner                     string `json:"owner"`
	Title                     string `json:"title"`
	Description               string `json:"description"`
	Currency                  string `json:"currency"`
	Mode                      string `json:"mode"`
	BasePriceCents            int64  `json:"base_price_cents"`
	HourlyRateCents           int64  `json:"hourly_rate_cents"`
	DailyRateCents            int64  `json:"daily_rate_cents"`
	WeeklyRateCents           int64  `json:"weekly_rate_cents"`
	MonthlyRateCents          int64  `json:"monthly_rate_cents"`
	WeeklyDiscountPercent     int    `json:"weekly_discount_percent"`
	MonthlyDiscountPercent    int    `json:"monthly_discount_percent"`
	DepositKind               string `json:"deposit_kind"`
	DepositAmountCents        int64  `json:"deposit_amount_cents"`
	DepositPercent            int    `json:"deposit_percent"`
	InsuranceOffered          bool   `json:"insurance_offered"`
	InsuranceFeeCents         int64  `json:"insurance_fee_cents"`
	InsurancePercent          int    `json:"insurance_percent"`
	CancellationPolicyID      string `json:"cancellation_policy_id"`
	CancellationRefundPercent int    `json:"cancellation_refund_percent"`
}

func (fx listingFixture) pricingConfig() domainpricing.Config {
	currency := fx.Currency
	cents := func(amount int64) domainmoney.Money {
		return domainmoney.Money{Amount: amount, Currency: currency}
	}
	depositKind := domainpricing.DepositKind(fx.DepositKind)
	if fx.DepositKind == "" {
		depositKind = domainpricing.DepositNone
	}
	return domainpricing.Config{
		Currency:               currency,
		Mode:                   domainpricing.Mode(fx.Mode),
		BasePrice:              cents(fx.BasePriceCents),
		HourlyRate:             cents(fx.HourlyRateCents),
		DailyRate:              cents(fx.DailyRateCents),
		WeeklyRate:             cents(fx.WeeklyRateCents),
		MonthlyRate:            cents(fx.MonthlyRateCents),
		WeeklyDiscountPercent:  fx.WeeklyDiscountPercent,
		MonthlyDiscountPercent: fx.MonthlyDiscountPercent,
		Deposit: domainpricing.DepositConfig{
			Kind:    depositKind,
			Amount:  cents(fx.DepositAmountCents),
			Percent: fx.DepositPercent,
		},
		Insurance: domainpricing.InsuranceConfig{
			Offered: fx.InsuranceOffered,
			Fee:     cents(fx.InsuranceFeeCents),
			Percent: fx.InsurancePercent,
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
