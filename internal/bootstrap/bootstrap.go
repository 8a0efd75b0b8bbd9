// Package bootstrap builds the application service and its collaborators from a Config. Both
// binaries share it so the server and the CLI run the same stack.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"shop-ledger/internal/ai"
	"shop-ledger/internal/app"
	"shop-ledger/internal/cache"
	"shop-ledger/internal/config"
	"shop-ledger/internal/db"
	"shop-ledger/internal/events"
	"shop-ledger/internal/metrics"
	"shop-ledger/internal/notify"
	"shop-ledger/internal/store"
	"shop-ledger/internal/store/postgres"
	"shop-ledger/internal/store/remote"
	"shop-ledger/internal/store/sqlite"
)

// Runtime is a wired application service plus the resources it holds open.
type Runtime struct {
	Service app.ApplicationService
	Metrics *metrics.Metrics

	closers []func() error
}

// Close releases every resource in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured backend. SQLite migrations run on open; Postgres migrations
// run when migrate is true.
func OpenStore(ctx context.Context, cfg *config.Config, migrate bool) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return sqlite.New(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := db.MigratePostgres(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &pooledStore{Store: postgres.NewStore(pool), close: pool.Close}, nil
	case config.BackendRemote:
		return remote.New(cfg.RemoteURL, cfg.RemoteToken), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// pooledStore closes the Postgres pool with the store.
type pooledStore struct {
	store.Store
	close func()
}

func (s *pooledStore) Close() error {
	err := s.Store.Close()
	s.close()
	return err
}

// Build wires the store, cache, metrics, event bus, reminder channels and AI agent.
func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New()}

	st, err := OpenStore(ctx, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	rt.closers = append(rt.closers, st.Close)

	cached := cache.New(st, cache.DefaultSize, cfg.CacheTTL, rt.Metrics)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, rt.Metrics)
		rt.closers = append(rt.closers, kp.Close)
		publisher = kp
		slog.Info("ledger events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	router := notify.NewRouter()
	router.Register(notify.ChannelWhatsApp, notify.WhatsAppDispatcher{CountryCode: cfg.DefaultCountryCode})
	if cfg.RabbitMQURL != "" {
		q, err := notify.DialQueue(cfg.RabbitMQURL, cfg.ReminderQueue)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, q.Close)
		router.Register(notify.ChannelQueue, q)
	}

	deps := app.Deps{
		Store:            cached,
		Cache:            cached,
		Events:           publisher,
		Notifier:         router,
		Metrics:          rt.Metrics,
		Shop:             cfg.Shop,
		ReminderTemplate: cfg.ReminderTemplate,
	}
	if cfg.OpenAIAPIKey != "" {
		deps.Agent = ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.Shop)
	} else {
		slog.Warn("OPENAI_API_KEY is not set; monthly summaries will have no narrative")
	}

	rt.Service = app.NewAppService(deps)
	slog.Info("application service ready", "backend", cfg.StoreBackend, "channels", router.Channels())
	return rt, nil
}
