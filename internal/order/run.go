package order

import (
	"context"
	"errors"
	"fmt"

	"quiklii/internal/order/api/http"
	"quiklii/internal/order/app/core"
	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/logger"
)

// Execute starts the order service and blocks until shutdown.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	params, err := core.ParseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	if err := validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}

	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}
	if cfg.Auth == nil || cfg.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required for the order service")
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
			mylog.Action("order_service_failed").Error("Server failed unexpectedly", err)
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}

func validateParams(params *core.OrderParams) error {
	if params.Port <= 0 || params.Port >= 65536 {
		return fmt.Errorf("port must be in [1, 65535]: %d", params.Port)
	}
	if params.PaymentURL == "" {
		return fmt.Errorf("payment-url is required")
	}
	return nil
}
