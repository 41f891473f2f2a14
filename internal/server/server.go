// Package server exposes the router over HTTP for UI contexts that cannot use
// native messaging.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/ruminaider/profilepop/internal/router"
	"go.uber.org/zap"
)

// MaxRequestBytes bounds a message body.
const MaxRequestBytes = 1 << 20

// Server serves the message API and the event stream.
type Server struct {
	router   *router.Router
	hub      *Hub
	log      *zap.Logger
	origins  OriginPolicy
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins admits these exact origins in addition to browser
// extension pages.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = NewOriginPolicy(origins...) }
}

// New returns a Server dispatching to rt and streaming events from hub.
func New(rt *router.Router, hub *Hub, log *zap.Logger, opts ...Option) *Server {
	s := &Server{router: rt, hub: hub, log: log, origins: NewOriginPolicy()}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.origins.allowsRequest}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(originGuard(s.origins, s.log))
		r.With(middleware.AllowContentType("application/json")).Post("/messages", s.HandleMessage)
		r.Get("/events", s.serveEvents)
	})

	return r
}

// HandleMessage decodes one request body, dispatches it and writes the
// Response. Failures carry a status code matching their kind.
func (s *Server) HandleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		respondWithJSON(w, http.StatusRequestEntityTooLarge, router.Response{
			Error: &router.Failure{Kind: router.KindInvalidFormat, Message: "Request body too large."},
		})
		return
	}

	resp := s.router.HandleRaw(r.Context(), body)
	code := http.StatusOK
	if resp.Error != nil {
		code = statusFor(resp.Error.Kind)
	}
	respondWithJSON(w, code, resp)
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.Attach(conn)
}

func statusFor(kind router.Kind) int {
	switch kind {
	case router.KindNotFound:
		return http.StatusNotFound
	case router.KindLimitExceeded:
		return http.StatusForbidden
	case router.KindInvalidFormat, router.KindInvalidProfile, router.KindUnknownAction:
		return http.StatusBadRequest
	case router.KindExternalFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
