// cmd/server/server.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtledger/internal/api"
	"github.com/codr1/courtledger/internal/api/bookings"
	"github.com/codr1/courtledger/internal/api/payments"
	"github.com/codr1/courtledger/internal/booking"
	"github.com/codr1/courtledger/internal/config"
	"github.com/codr1/courtledger/internal/db"
	"github.com/codr1/courtledger/internal/email"
	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/ledger"
	"github.com/codr1/courtledger/internal/metrics"
	"github.com/codr1/courtledger/internal/notify"
	"github.com/codr1/courtledger/internal/ratelimit"
	"github.com/codr1/courtledger/internal/scheduler"
	"github.com/codr1/courtledger/internal/split"
	"github.com/codr1/courtledger/internal/webhook"
)

type app struct {
	server  *http.Server
	db      *db.DB
	limiter *ratelimit.Limiter
}

func newApp(cfg *config.Config) (*app, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Features.EnableMetrics {
		m = metrics.New()
	}

	gw, err := gateway.NewHTTPClient(gateway.Config{
		BaseURL:     cfg.Payments.GatewayBaseURL,
		AccessToken: cfg.Payments.AccessToken,
		Timeout:     cfg.Payments.Timeout,
	}, m)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("create gateway client: %w", err)
	}

	notifier := newNotifier(cfg)

	bookingService, err := booking.NewService(database, notifier, m, booking.Options{
		CancellationLeadTime:    cfg.Booking.CancellationLeadTime,
		DefaultTimezone:         cfg.Booking.DefaultTimezone,
		SplitDefaultExpiryHours: cfg.Payments.SplitDefaultExpiryHours,
		PhoneRegion:             cfg.Booking.PhoneRegion,
	})
	if err != nil {
		database.Close()
		return nil, err
	}
	bookingLedger, err := ledger.New(database, gw, notifier, m, ledger.Options{
		Currency:        cfg.Payments.Currency,
		NotificationURL: cfg.Payments.NotificationURL,
	})
	if err != nil {
		database.Close()
		return nil, err
	}
	orchestrator, err := split.NewOrchestrator(database, gw, notifier, m, split.Options{
		Currency:             cfg.Payments.Currency,
		SplitNotificationURL: cfg.Payments.SplitNotificationURL,
	})
	if err != nil {
		database.Close()
		return nil, err
	}
	if cfg.Payments.WebhookSecret == "" {
		log.Warn().Msg("PAYMENT_WEBHOOK_SECRET not set; webhook signatures are not verified")
	}
	reconciler, err := webhook.NewReconciler(database, gw, orchestrator, notifier, m, webhook.Options{
		Secret:       cfg.Payments.WebhookSecret,
		FetchTimeout: cfg.Payments.Timeout,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Cooldown:     cfg.RateLimit.BookingCooldown,
		MaxPerHour:   cfg.RateLimit.BookingMaxPerHour,
		MaxIPPerHour: cfg.RateLimit.IPMaxPerHour,
	})

	bookings.InitHandlers(bookings.Deps{
		Bookings:        bookingService,
		Ledger:          bookingLedger,
		Queries:         database.Queries,
		Limiter:         limiter,
		SlotStep:        cfg.Booking.SlotStep,
		DefaultTimezone: cfg.Booking.DefaultTimezone,
		TrustProxy:      cfg.RateLimit.TrustProxy,
	})
	payments.InitHandlers(payments.Deps{
		Ledger:       bookingLedger,
		Orchestrator: orchestrator,
		Reconciler:   reconciler,
		Queries:      database.Queries,
		Limiter:      limiter,
		TrustProxy:   cfg.RateLimit.TrustProxy,
	})

	if err := startScheduler(cfg, orchestrator, reconciler); err != nil {
		limiter.Close()
		database.Close()
		return nil, err
	}

	return &app{
		server:  newServer(cfg, m),
		db:      database,
		limiter: limiter,
	}, nil
}

// newNotifier always logs events and also e-mails them when SES is enabled.
func newNotifier(cfg *config.Config) notify.Notifier {
	notifiers := notify.Multi{notify.LogNotifier{}}
	if !cfg.Email.Enabled {
		return notifiers
	}
	client, err := email.NewSESClient(
		os.Getenv("AWS_ACCESS_KEY_ID"),
		os.Getenv("AWS_SECRET_ACCESS_KEY"),
		cfg.Email.Region,
		cfg.Email.Sender,
	)
	if err != nil {
		log.Error().Err(err).Msg("E-mail notifications disabled")
		return notifiers
	}
	return append(notifiers, notify.NewEmailNotifier(client, cfg.Payments.Currency))
}

func startScheduler(cfg *config.Config, orchestrator *split.Orchestrator, reconciler *webhook.Reconciler) error {
	if err := scheduler.Init(); err != nil {
		return fmt.Errorf("initialize scheduler: %w", err)
	}
	sched, err := scheduler.ServiceInstance()
	if err != nil {
		return err
	}
	if err := sched.RegisterSplitExpiryJob(orchestrator, cfg.Scheduler.SplitExpiryCron); err != nil {
		return fmt.Errorf("register split expiry job: %w", err)
	}
	if err := sched.RegisterPaymentRepollJob(reconciler, cfg.Scheduler.PaymentRepollCron, webhook.RepollOptions{
		After: cfg.Scheduler.PaymentRepollAfter,
	}); err != nil {
		return fmt.Errorf("register payment repoll job: %w", err)
	}
	return scheduler.Start()
}

func (a *app) shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	err = errors.Join(err, scheduler.Stop())
	a.limiter.Close()
	return errors.Join(err, a.db.Close())
}

func newServer(cfg *config.Config, m *metrics.Metrics) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithActor,
		api.WithJSONBody,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)
	if m != nil {
		handler = m.InstrumentHandler(handler)
	}

	// Register routes
	registerRoutes(router, cfg, m)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, m *metrics.Metrics) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	// Booking routes
	mux.HandleFunc("POST /bookings", bookings.HandleCreate)
	mux.HandleFunc("GET /bookings/{id}", bookings.HandleGet)
	mux.HandleFunc("PUT /bookings/{id}", bookings.HandlePut)
	mux.HandleFunc("DELETE /bookings/{id}", bookings.HandleCancel)
	mux.HandleFunc("GET /bookings/{id}/ledger", bookings.HandleLedger)
	mux.HandleFunc("POST /bookings/{id}/payments", bookings.HandleRegisterPayment)
	mux.HandleFunc("GET /courts/{id}/availability", bookings.HandleAvailability)

	// Payment routes
	mux.HandleFunc("POST /payments", payments.HandleInitiate)
	mux.HandleFunc("POST /payments/split", payments.HandleSplitInitiate)
	mux.HandleFunc("GET /payments/split/invites/{inviteCode}", payments.HandleSplitPlan)
	mux.HandleFunc("DELETE /payments/split/{id}/participants/{participantId}", payments.HandleSplitCancelParticipant)
	mux.HandleFunc("GET /payments/{id}/status", payments.HandleStatus)
	mux.HandleFunc("POST /payments/{id}/refund", payments.HandleRefund)

	// Gateway callbacks carry no actor and are signature-checked instead.
	webhookBucket := api.WithTokenBucket(ratelimit.NewBucket(cfg.RateLimit.WebhookRatePerSec, cfg.RateLimit.WebhookBurst))
	mux.Handle("POST /payments/webhook", webhookBucket(http.HandlerFunc(payments.HandleWebhook)))
	mux.Handle("POST /payments/webhook/split", webhookBucket(http.HandlerFunc(payments.HandleSplitWebhook)))
}
