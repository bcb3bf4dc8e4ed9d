package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"quiklii/internal/notifier/hub"
	"quiklii/internal/notifier/session"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const shutdownWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers of the web client connect cross-origin from the storefront.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	port      int
	h         *hub.Hub
	validator auth.Validator
	mylog     logger.Logger
	ctx       context.Context

	srv *http.Server
	mu  sync.Mutex
}

func NewServer(ctx context.Context, port int, h *hub.Hub, validator auth.Validator, mylog logger.Logger) *Server {
	return &Server{
		ctx:       ctx,
		port:      port,
		h:         h,
		validator: validator,
		mylog:     mylog,
	}
}

func (s *Server) Run() error {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", s.handleConnect())

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: r,
	}
	s.mu.Unlock()

	s.mylog.Action("server_started").With("port", s.port).Info("Notifier is running")

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

	if s.srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownWait)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// handleConnect authenticates once at connect time, then hands the socket
// to the session pumps.
func (s *Server) handleConnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := s.validator.Validate(token)
		if err != nil {
			s.mylog.Action("connect_rejected").Debug("Token validation failed", "error", err.Error())
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.mylog.Action("upgrade_failed").Error("Failed to upgrade connection", err)
			return
		}

		sess := session.New(conn, claims, s.h, s.mylog)
		s.mylog.Action("session_connected").Info("Session connected", "user_id", claims.UserID, "role", claims.Role)

		go sess.Run()
	}
}
