package payment

import (
	"context"
	"errors"
	"fmt"

	"quiklii/internal/payment/api/http"
	"quiklii/internal/payment/app/core"
	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/logger"
)

// Execute starts the payment service and blocks until shutdown.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	params, err := core.ParseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}

	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}
	if cfg.Auth == nil || cfg.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required for the payment service")
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("config: at least one payment provider is required")
	}

	server := http.NewServer(ctx, cfg, params, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			mylog.Action("payment_service_failed").Error("Server failed unexpectedly", err)
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}
