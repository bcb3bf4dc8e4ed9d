package core

import (
	"flag"
	"fmt"
)

const (
	// WaitTime bounds request-scoped DB work and graceful shutdown, seconds.
	WaitTime = 10

	MinItems           = 1
	MaxItems           = 20
	MinItemQuantity    = 1
	MaxItemQuantity    = 50
	MinAddressLen      = 5
	MaxAddressLen      = 500
	MaxInstructionsLen = 255
)

type OrderParams struct {
	Port       int
	ConfigPath string
	PaymentURL string
}

func ParseParams(args []string) (*OrderParams, error) {
	fs := flag.NewFlagSet("order-service", flag.ContinueOnError)

	port := fs.Int("port", 3000, "HTTP port for the order service")
	configPath := fs.String("config", "config.yaml", "path to config file")
	paymentURL := fs.String("payment-url", "http://localhost:3001", "base URL of the payment service")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseCmd, err)
	}

	return &OrderParams{
		Port:       *port,
		ConfigPath: *configPath,
		PaymentURL: *paymentURL,
	}, nil
}
