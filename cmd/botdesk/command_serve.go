package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"botdesk/internal/config"
	"botdesk/internal/devserver"
	"botdesk/internal/logging"
)

type serveOptions struct {
	Addr      string
	StorePath string
	Secret    string
	Version   string
	LogLevel  string
}

type serverRunner func(ctx context.Context, opts serveOptions, stderr io.Writer) error

type ServeCommand struct {
	stderr    io.Writer
	runServer serverRunner
	version   string
}

func NewServeCommand(stderr io.Writer, runServer serverRunner, version string) *ServeCommand {
	return &ServeCommand{
		stderr:    stderr,
		runServer: runServer,
		version:   version,
	}
}

func (c *ServeCommand) Run(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	addr := fs.String("addr", "", "listen address (default from config)")
	storePath := fs.String("store", "", "path to the server database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts := serveOptions{
		Addr:      strings.TrimSpace(*addr),
		StorePath: strings.TrimSpace(*storePath),
		Secret:    cfg.JWTSecret(),
		Version:   c.version,
		LogLevel:  cfg.LogLevel(),
	}
	if opts.Addr == "" {
		opts.Addr = cfg.ServerAddress()
	}
	if opts.StorePath == "" {
		opts.StorePath, err = config.ServerStorePath()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.runServer(ctx, opts, c.stderr)
}

func runDevServer(ctx context.Context, opts serveOptions, stderr io.Writer) error {
	logger := logging.New(stderr, logging.ParseLevel(opts.LogLevel))
	srv, err := devserver.New(devserver.Options{
		Addr:      opts.Addr,
		StorePath: opts.StorePath,
		Secret:    opts.Secret,
		Version:   opts.Version,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Run(ctx)
}
