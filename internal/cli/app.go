package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"finitefield.org/statusboard/internal/dashboard"
	"finitefield.org/statusboard/internal/freshness"
	"finitefield.org/statusboard/internal/health"
	"finitefield.org/statusboard/internal/indicators"
	"finitefield.org/statusboard/internal/platform/config"
	"finitefield.org/statusboard/internal/platform/events"
	"finitefield.org/statusboard/internal/platform/secrets"
	"finitefield.org/statusboard/internal/platform/sheets"
	"finitefield.org/statusboard/internal/status"
)

// memorySeedValue is the value every catalogued indicator starts at in the memory backend.
const memorySeedValue = 5

type pingingStore interface {
	status.Store
	Ping(ctx context.Context) error
}

// App holds the dependencies wired for one process.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Store      status.Store
	Controller *dashboard.Controller
	Checker    *health.Checker

	closers []func() error
}

// Bootstrap loads configuration and wires the store, gateway, controller, optional
// Pub/Sub notifier and readiness checks.
func Bootstrap(ctx context.Context, logger *zap.Logger, opts ...config.Option) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	lookup, err := config.NewLookup(opts...)
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	fetcherOpts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(config.Value(lookup, "SECRETS_PROJECT")),
	}
	if path := config.Value(lookup, "SECRETS_FALLBACK_FILE"); path != "" {
		fetcherOpts = append(fetcherOpts, secrets.WithFallbackFile(path))
	}
	fetcher, err := secrets.NewFetcher(ctx, fetcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("secret fetcher: %w", err)
	}
	app.closers = append(app.closers, fetcher.Close)

	cfg, err := config.Load(ctx, append(append([]config.Option(nil), opts...), config.WithSecretResolver(fetcher))...)
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	catalog := indicators.Default()
	store, err := newStore(ctx, cfg.Store, catalog)
	if err != nil {
		return nil, err
	}
	app.Store = store

	gateway, err := status.NewGateway(status.GatewayDeps{
		Store:    store,
		Location: cfg.Display.Location,
		Logger:   logger.Named("gateway"),
	})
	if err != nil {
		return nil, err
	}

	var notifier dashboard.Notifier
	if cfg.Events.Enabled() {
		publisher, err := app.newPublisher(ctx, cfg.Events)
		if err != nil {
			return nil, err
		}
		notifier = publisher
	}

	controller, err := dashboard.NewController(dashboard.ControllerDeps{
		Gateway:  gateway,
		Catalog:  catalog,
		Clock:    freshness.New(cfg.Display.Location),
		Notifier: notifier,
		Logger:   logger.Named("dashboard"),
	})
	if err != nil {
		return nil, err
	}
	app.Controller = controller

	checker, err := health.NewChecker([]health.DependencyCheck{{
		Name:    "store",
		Timeout: 3 * time.Second,
		Check:   store.Ping,
	}})
	if err != nil {
		return nil, err
	}
	app.Checker = checker
	return app, nil
}

func newStore(ctx context.Context, cfg config.StoreConfig, catalog *indicators.Catalog) (pingingStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		defs := catalog.Indicators()
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
		}
		return sheets.NewMemoryStore(sheets.DefaultTable(names, memorySeedValue), sheets.WithModifiedTime(time.Now())), nil
	default:
		store, err := sheets.NewStore(ctx, sheets.Config{
			SpreadsheetID: cfg.SpreadsheetID,
			StatusSheet:   cfg.StatusSheet,
			HistorySheet:  cfg.HistorySheet,
		}, sheets.CredentialOptions(cfg.Credentials, cfg.CredentialsFile)...)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *App) newPublisher(ctx context.Context, cfg config.EventsConfig) (*events.PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	a.closers = append(a.closers, client.Close)

	publisher, err := events.NewPubSubPublisher(client.Topic(cfg.TopicID))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		publisher.Stop()
		return nil
	})
	return publisher, nil
}

// Close releases clients in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
