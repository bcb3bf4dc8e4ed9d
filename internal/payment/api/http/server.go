package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	orderbroker "quiklii/internal/order/adapter/broker"
	orderdb "quiklii/internal/order/adapter/db"
	"quiklii/internal/payment/adapter/broker"
	database "quiklii/internal/payment/adapter/db"
	"quiklii/internal/payment/adapter/orders"
	"quiklii/internal/payment/adapter/provider"
	"quiklii/internal/payment/api/http/handle"
	"quiklii/internal/payment/app/core"
	"quiklii/internal/payment/app/services"
	"quiklii/internal/payment/refund"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/config"
	"quiklii/internal/xpkg/db"
	"quiklii/internal/xpkg/logger"
	"quiklii/internal/xpkg/rabbitmq"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	cfg    *config.Config
	params *core.PaymentParams
	mylog  logger.Logger
	ctx    context.Context

	srv      *http.Server
	database *db.DB
	events   core.IEventPublisher
	sweepWG  sync.WaitGroup
	mu       sync.Mutex
}

func NewServer(ctx context.Context, cfg *config.Config, params *core.PaymentParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		cfg:    cfg,
		params: params,
		mylog:  mylog,
	}
}

func (s *Server) Run() error {
	mylog := s.mylog.Action("server_starting")

	database, err := db.Connect(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}
	s.database = database

	rmq, err := rabbitmq.Connect(s.cfg.RMQ, s.mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	s.events = broker.NewPublisher(rmq, s.mylog)

	router, sweeper := s.configure(rmq)

	s.sweepWG.Add(1)
	go func() {
		defer s.sweepWG.Done()
		sweeper.Run(s.ctx)
	}()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.params.Port),
		Handler: router,
	}
	s.mu.Unlock()

	mylog.With("port", s.params.Port).Info("Payment service is running")
	return s.serve()
}

func (s *Server) configure(rmq *rabbitmq.RabbitMQ) (http.Handler, *refund.Sweeper) {
	paymentRepo := database.NewPaymentRepo(s.database, s.mylog)
	providers := provider.NewRegistry(s.cfg.Providers)

	orderRepo := orderdb.NewOrderRepo(s.database, s.mylog)
	orderEvents := orderbroker.NewPublisher(rmq, s.mylog)
	confirmer := orders.NewConfirmer(orderRepo, orderEvents, s.mylog)

	paymentService := services.NewPaymentService(paymentRepo, providers, s.events, confirmer, s.mylog)
	paymentHandler := handle.NewPaymentHandler(paymentService, providers, s.mylog)

	sweeper := refund.NewSweeper(
		paymentRepo,
		refund.InternalExecutor{},
		s.events,
		time.Duration(s.params.SweepInterval)*time.Second,
		core.MaxRefundAttempts,
		s.mylog,
	)

	validator := auth.NewHMACValidator(s.cfg.Auth.Secret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(validator))
		r.Post("/payments", paymentHandler.Initiate())
	})

	// Webhooks authenticate with provider signatures, refunds arrive from
	// the order service inside the trust boundary.
	r.Post("/payments/webhook/{provider}", paymentHandler.Webhook())
	r.Post("/refunds", paymentHandler.RecordRefund())

	return r, sweeper
}

func (s *Server) serve() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down payment service")

	s.sweepWG.Wait()

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
	}

	if s.database != nil {
		if err := s.database.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
	}

	s.mylog.Action("graceful_shutdown_completed").Info("Payment service shut down gracefully")
	return nil
}
