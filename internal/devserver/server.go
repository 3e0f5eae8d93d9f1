// Package devserver is a self-contained backend for the chat and auth REST
// contracts, used to run the client locally and in tests.
package devserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"botdesk/internal/logging"
)

type Options struct {
	Addr      string
	StorePath string
	Secret    string
	TokenTTL  time.Duration
	Version   string
	Responder Responder
	Logger    logging.Logger
}

type Server struct {
	addr    string
	store   *Store
	issuer  *TokenIssuer
	handler http.Handler
	logger  logging.Logger
	server  *http.Server
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With(logging.Component("devserver"))
	store, err := OpenStore(opts.StorePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.Secret) == "" {
		logger.Warn("no jwt secret configured; tokens will not survive a restart")
	}
	issuer, err := NewTokenIssuer(opts.Secret, opts.TokenTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	api := &API{
		Version: opts.Version,
		Users:   NewUserService(store, issuer, logger),
		Chats:   NewChatService(store, opts.Responder, logger),
		Logger:  logger,
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	handler := LoggingMiddleware(logger, BearerAuthMiddleware(issuer, store, mux))
	return &Server{
		addr:    strings.TrimSpace(opts.Addr),
		store:   store,
		issuer:  issuer,
		handler: handler,
		logger:  logger,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if pruned, err := s.store.PruneRevoked(time.Now()); err != nil {
		s.logger.Warn("prune revoked tokens failed", logging.Err(err))
	} else if pruned > 0 {
		s.logger.Debug("pruned revoked tokens", logging.F("count", pruned))
	}
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", logging.F("addr", listener.Addr().String()))
		errCh <- s.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) Close() error {
	return s.store.Close()
}
