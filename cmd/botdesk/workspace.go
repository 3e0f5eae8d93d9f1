package main

import (
	"context"
	"errors"
	"io"

	"botdesk/internal/auth"
	"botdesk/internal/catalog"
	"botdesk/internal/chat"
	"botdesk/internal/client"
	"botdesk/internal/config"
	"botdesk/internal/logging"
	"botdesk/internal/session"
	"botdesk/internal/store"
)

// workspace is everything a client-side command needs: config, the local
// repository, the API client and the two controllers built on top of it.
type workspace struct {
	cfg     config.Config
	logger  logging.Logger
	client  *client.Client
	session *session.Container
	chats   *chat.Controller

	closers []io.Closer
}

type workspaceFactory func(ctx context.Context) (*workspace, error)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ws := &workspace{cfg: cfg}

	logPath, err := config.LogPath()
	if err != nil {
		return nil, err
	}
	logger, logFile, err := logging.OpenFile(logPath, logging.ParseLevel(cfg.LogLevel()))
	if err != nil {
		return nil, err
	}
	ws.logger = logger
	ws.closers = append(ws.closers, logFile)

	storePath, err := config.StorePath()
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	repo, err := store.NewRepository(cfg.StoreBackend(), storePath)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.closers = append(ws.closers, repo)

	ws.client = client.New(cfg.APIBaseURL(),
		client.WithTimeout(cfg.RequestTimeout()),
		client.WithSendTimeout(cfg.SendTimeout()),
		client.WithLogger(logger),
	)
	provider := auth.NewHTTPProvider(ws.client, logger)
	sess, err := session.New(ctx, provider, repo.Tokens(), ws.client, logger, session.WithHistory(repo.History()))
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.session = sess
	ws.chats = chat.NewController(ws.client,
		chat.WithHistoryStore(repo.History()),
		chat.WithResolver(catalog.Resolve),
		chat.WithLogger(logger),
	)
	// controllers go first so late notifications never touch a closed store
	ws.closers = append([]io.Closer{
		closerFunc(func() error { ws.chats.Close(); return nil }),
		closerFunc(func() error { ws.session.Close(); return nil }),
	}, ws.closers...)
	logger.Debug("workspace opened", logging.F("store", repo.Backend()), logging.F("api", cfg.APIBaseURL()))
	return ws, nil
}

func (w *workspace) Close() error {
	var errs []error
	for _, closer := range w.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}
