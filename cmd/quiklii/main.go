package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"quiklii/internal/notifier"
	"quiklii/internal/order"
	"quiklii/internal/payment"
	"quiklii/internal/xpkg/logger"
)

func main() {
	mylogger, err := logger.New(os.Getenv("QUIKLII_LOG_LEVEL"))
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	fs := flag.NewFlagSet("quiklii", flag.ExitOnError)
	mode := fs.String("mode", "", "service to run: order-service | payment-service | notifier")

	// Only --mode is parsed here; the remaining args belong to the service.
	modeArgs, remainingArgs := splitModeArgs(os.Args[1:])
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("startup_failed").Error("Failed to parse flags", err)
		help(fs)
		os.Exit(1)
	}
	if *mode == "" {
		mylogger.Action("startup_failed").Error("Mode flag is required", nil)
		help(fs)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "order-service", "os":
		l := mylogger.With("service", "order-service")
		l.Action("service_started").Info("Starting order service")
		if err := order.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("service_failed").Error("Order service failed", err)
			os.Exit(1)
		}

	case "payment-service", "ps":
		l := mylogger.With("service", "payment-service")
		l.Action("service_started").Info("Starting payment service")
		if err := payment.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("service_failed").Error("Payment service failed", err)
			os.Exit(1)
		}

	case "notifier", "nt":
		l := mylogger.With("service", "notifier")
		l.Action("service_started").Info("Starting notifier")
		if err := notifier.Execute(ctx, l, remainingArgs); err != nil {
			l.Action("service_failed").Error("Notifier failed", err)
			os.Exit(1)
		}

	default:
		mylogger.Action("startup_failed").Error("Unknown service mode", fmt.Errorf("unknown mode: %s", *mode))
		help(fs)
		os.Exit(1)
	}
}

// splitModeArgs cuts the argument list after the --mode flag, keeping the
// value token when the flag and value are space-separated.
func splitModeArgs(args []string) (modeArgs, rest []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "--mode=") || strings.HasPrefix(arg, "-mode=") {
			return args[:i+1], args[i+1:]
		}
		if arg == "--mode" || arg == "-mode" {
			end := i + 2
			if end > len(args) {
				end = len(args)
			}
			return args[:end], args[end:]
		}
	}
	return args, nil
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./quiklii --mode=order-service --port=3000 --payment-url=http://localhost:3001")
}
