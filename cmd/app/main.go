package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"shop-ledger/internal/adapters/cli"
	"shop-ledger/internal/app"
	"shop-ledger/internal/bootstrap"
	"shop-ledger/internal/config"
	"shop-ledger/internal/logging"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// The CLI writes tables to stdout; keep logs to warnings unless asked for more.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logging.Setup(level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		once sync.Once
		rt   *bootstrap.Runtime
		bErr error
	)
	service := func(ctx context.Context) (app.ApplicationService, error) {
		once.Do(func() { rt, bErr = bootstrap.Build(ctx, cfg) })
		if bErr != nil {
			return nil, bErr
		}
		return rt.Service, nil
	}
	migrate := func(ctx context.Context) error {
		if cfg.StoreBackend == config.BackendRemote {
			return fmt.Errorf("the remote backend has no local schema to migrate")
		}
		st, err := bootstrap.OpenStore(ctx, cfg, true)
		if err != nil {
			return err
		}
		return st.Close()
	}

	root := cli.NewRootCmd(cli.Deps{Service: service, Migrate: migrate, ShopID: cfg.ShopID})
	err = root.ExecuteContext(ctx)
	if rt != nil {
		rt.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
