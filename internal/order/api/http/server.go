package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"quiklii/internal/order/adapter/broker"
	database "quiklii/internal/order/adapter/db"
	"quiklii/internal/order/adapter/refund"
	"quiklii/internal/order/api/http/handle"
	"quiklii/internal/order/app/core"
	"quiklii/internal/order/app/services"
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
	params *core.OrderParams
	mylog  logger.Logger
	ctx    context.Context

	srv      *http.Server
	database *db.DB
	events   core.IEventPublisher
	mu       sync.Mutex
}

func NewServer(ctx context.Context, cfg *config.Config, params *core.OrderParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:    ctx,
		cfg:    cfg,
		params: params,
		mylog:  mylog,
	}
}

// Run connects infrastructure, wires the service, and serves until the
// context is cancelled.
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

	router := s.configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.params.Port),
		Handler: router,
	}
	s.mu.Unlock()

	mylog.With("port", s.params.Port).Info("Order service is running")
	return s.serve()
}

func (s *Server) configure() http.Handler {
	orderRepo := database.NewOrderRepo(s.database, s.mylog)
	refunds := refund.NewClient(s.params.PaymentURL)
	orderService := services.NewOrderService(orderRepo, s.events, refunds, s.mylog)
	orderHandler := handle.NewOrderHandler(orderService, s.mylog)

	validator := auth.NewHMACValidator(s.cfg.Auth.Secret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(validator))
		r.Post("/orders", orderHandler.Create())
		r.Put("/orders/{orderID}/status", orderHandler.Transition())
		r.Post("/orders/{orderID}/cancel", orderHandler.Cancel())
		r.Get("/orders/{orderID}", orderHandler.Get())
		r.Get("/orders/{orderID}/history", orderHandler.History())
	})

	return r
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

// Stop shuts down the HTTP listener, then closes broker and database.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down order service")

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

	s.mylog.Action("graceful_shutdown_completed").Info("Order service shut down gracefully")
	return nil
}
