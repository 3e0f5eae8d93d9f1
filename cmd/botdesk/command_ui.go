package main

import (
	"context"
	"flag"
	"io"

	"botdesk/internal/app"
)

type uiRunner func(ctx context.Context, ws *workspace, dark bool) error

type UICommand struct {
	stderr       io.Writer
	newWorkspace workspaceFactory
	runUI        uiRunner
}

func NewUICommand(stderr io.Writer, newWorkspace workspaceFactory, runUI uiRunner) *UICommand {
	return &UICommand{
		stderr:       stderr,
		newWorkspace: newWorkspace,
		runUI:        runUI,
	}
}

func (c *UICommand) Run(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	light := fs.Bool("light", false, "render markdown for a light terminal background")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if _, err := requireIdentity(ctx, ws); err != nil {
		return err
	}
	dark := ws.cfg.DarkMode() && !*light
	return c.runUI(ctx, ws, dark)
}

func runChatUI(ctx context.Context, ws *workspace, dark bool) error {
	return app.Run(ctx, ws.chats, ws.session, ws.logger, dark)
}
