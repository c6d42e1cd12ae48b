package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/account"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/api"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	orderApplication "github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/worker"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/config"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/payment"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/lock"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infrastructure/persistence/sqlite"
)

// app holds every component of one process.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Counters

	api        *api.API
	orders     *orderApplication.Service
	sender     *worker.PaymentSender
	dispatcher *outbox.Dispatcher
	scheduler  *worker.RetryScheduler

	db *sql.DB
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	handler, err := logging.ParseHandler(cfg.Log.Handler)
	if err != nil {
		return nil, fmt.Errorf("log.handler: %w", err)
	}
	return logging.New(level, handler), nil
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     logger,
		metrics: &metrics.Counters{},
	}

	var (
		storage    contracts.Storage
		orderRepo  order.Repository
		outboxRepo outbox.Repository
	)

	switch cfg.Storage.Driver {
	case "memory":
		storage = inmemory.NewStorage()
		orderRepo = inmemory.NewOrderRepository()
		outboxRepo = inmemory.NewOutboxRepository()
	default:
		db, err := sqlite.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		a.db = db
		storage = sqlite.NewStorage(db)
		orderRepo = sqlite.NewOrderRepository(db)
		outboxRepo = outbox.NewSQLiteRepository(db)
	}

	bus := eventbus.NewInMemoryBus()
	paymentEvents := &orderApplication.PaymentEventHandler{Repo: orderRepo}
	bus.Subscribe(event.CompletePayment, paymentEvents.Handle)
	bus.Subscribe(event.CancelPayment, paymentEvents.Handle)
	notifier := &orderApplication.AbandonedNotifier{Logger: logging.Child(logger, "Operator")}
	bus.Subscribe(event.PaymentAbandoned, notifier.Handle)

	var tenant *payment.Tenant
	if cfg.Tenant.SiteID != 0 || cfg.Tenant.SiteURL != "" {
		tenant = &payment.Tenant{SiteID: cfg.Tenant.SiteID, SiteURL: cfg.Tenant.SiteURL}
	}

	transport := httpapi.NewClient(httpapi.ClientConfig{
		Timeout:      cfg.Transport.Timeout,
		RetryCount:   cfg.Transport.RetryCount,
		RetryWait:    cfg.Transport.RetryWait,
		RetryMaxWait: cfg.Transport.RetryMaxWait,
	})

	a.api = api.New(transport, storage, lock.NewKeyed(), bus, func(o *api.Options) {
		o.URL = cfg.APIURL
		o.ServerName = cfg.ServerName
		o.Logger = logger
		o.Metrics = a.metrics
		o.Tenant = tenant
		if cfg.Account.RetrieveKeyTTL > 0 {
			o.AccountOptions = append(o.AccountOptions, func(ao *account.Options) {
				ao.RetrieveKeyTTL = cfg.Account.RetrieveKeyTTL
			})
		}
	})

	a.orders = &orderApplication.Service{Repo: orderRepo}

	a.sender = &worker.PaymentSender{
		Orders:      orderRepo,
		Payments:    a.api.Payments(),
		Recorder:    &outbox.Recorder{Repo: outboxRepo},
		Tenant:      tenant,
		MaxAttempts: cfg.Retry.MaxAttempts,
		Logger:      logging.Child(logger, "PaymentSender"),
		Metrics:     a.metrics,
	}

	a.dispatcher = &outbox.Dispatcher{
		Repo:         outboxRepo,
		EventBus:     bus,
		PollInterval: time.Second,
		BatchSize:    50,
		Logger:       logging.Child(logger, "Outbox"),
	}

	a.scheduler = &worker.RetryScheduler{
		Sender:     a.sender,
		Dispatcher: a.dispatcher,
		Interval:   cfg.Retry.Interval,
		Logger:     logging.Child(logger, "RetryScheduler"),
	}

	return a, nil
}

func (a *app) handler() *httpapi.Handler {
	return &httpapi.Handler{
		Messages: a.api,
		Orders:   a.orders,
		Sender:   a.sender,
		Metrics:  a.metrics,
		Logger:   logging.Child(a.log, "HTTP"),
	}
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
