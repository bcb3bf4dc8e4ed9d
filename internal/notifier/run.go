package notifier

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"quiklii/internal/notifier/api/ws"
	"quiklii/internal/notifier/consumer"
	"quiklii/internal/notifier/hub"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/logger"
	"quiklii/internal/xpkg/rabbitmq"
)

type params struct {
	port       int
	configPath string
	prefetch   int
}

// Execute starts the realtime notifier and blocks until shutdown.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	p, err := parseParams(args)
	if err != nil {
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}

	cfg, err := config.Load(p.configPath)
	if err != nil {
		mylog.Action("config_load_failed").Error("Failed to load config", err)
		return err
	}
	if cfg.Auth == nil || cfg.Auth.Secret == "" {
		return fmt.Errorf("config: auth.secret is required for the notifier")
	}

	rmq, err := rabbitmq.Connect(cfg.RMQ, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	defer rmq.Close()

	h := hub.New(mylog)
	validator := auth.NewHMACValidator(cfg.Auth.Secret)
	server := ws.NewServer(ctx, p.port, h, validator, mylog)
	events := consumer.New(rmq, h, p.prefetch, mylog)

	runErrCh := make(chan error, 2)
	go func() {
		runErrCh <- server.Run()
	}()
	go func() {
		runErrCh <- events.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			mylog.Action("notifier_failed").Error("Notifier failed unexpectedly", err)
			return err
		}
		return nil
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("notifier", flag.ContinueOnError)

	port := fs.Int("port", 3002, "HTTP port for the websocket gateway")
	configPath := fs.String("config", "config.yaml", "path to config file")
	prefetch := fs.Int("prefetch", 10, "broker prefetch per event queue")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("cannot parse arguments: %v", err)
	}

	if *port <= 0 || *port >= 65536 {
		return nil, fmt.Errorf("port must be in [1, 65535]: %d", *port)
	}
	if *prefetch <= 0 {
		return nil, fmt.Errorf("prefetch must be positive: %d", *prefetch)
	}

	return &params{
		port:       *port,
		configPath: *configPath,
		prefetch:   *prefetch,
	}, nil
}
