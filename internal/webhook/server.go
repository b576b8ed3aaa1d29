package webhook

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// DefaultPort is used when no webhook port is configured.
const DefaultPort = 8080

// maxBodyBytes limits webhook payloads to 10MB.
const maxBodyBytes = 10 << 20

// Server is the webhook HTTP server.
type Server struct {
	handler *Handler
	port    int
	log     logrus.FieldLogger
	srv     *http.Server
}

// NewServer creates a new webhook Server.
func NewServer(port int, handler *Handler, log logrus.FieldLogger) *Server {
	if port == 0 {
		port = DefaultPort
	}
	return &Server{
		handler: handler,
		port:    port,
		log:     log,
	}
}

// ListenAndServe starts the webhook server with graceful shutdown.
// It blocks until the context is cancelled or a termination signal is received.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.port).Info("webhook server listening")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down webhook server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Router returns the webhook routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(bodySizeLimitMiddleware(maxBodyBytes))
	r.Post("/webhook", s.handler.HandleWebhook)
	return r
}

// bodySizeLimitMiddleware limits the request body size.
func bodySizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
