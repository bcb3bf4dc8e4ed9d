package core

import (
	"flag"
	"fmt"
)

const (
	WaitTime = 10

	// MaxRefundAttempts bounds the compensating-refund retry sweep.
	MaxRefundAttempts = 5
)

type PaymentParams struct {
	Port          int
	ConfigPath    string
	SweepInterval int
}

func ParseParams(args []string) (*PaymentParams, error) {
	fs := flag.NewFlagSet("payment-service", flag.ContinueOnError)

	port := fs.Int("port", 3001, "HTTP port for the payment service")
	configPath := fs.String("config", "config.yaml", "path to config file")
	sweepInterval := fs.Int("sweep-interval", 30, "seconds between refund retry sweeps")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("cannot parse arguments: %v", err)
	}

	if *port <= 0 || *port >= 65536 {
		return nil, fmt.Errorf("port must be in [1, 65535]: %d", *port)
	}
	if *sweepInterval <= 0 {
		return nil, fmt.Errorf("sweep-interval must be positive: %d", *sweepInterval)
	}

	return &PaymentParams{
		Port:          *port,
		ConfigPath:    *configPath,
		SweepInterval: *sweepInterval,
	}, nil
}
