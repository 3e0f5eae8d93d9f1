package main

import (
	"io"
	"os"
)

type commandRunner interface {
	Run(args []string) error
}

type commandWiring struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
	runServer    serverRunner
	runUI        uiRunner
	version      string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:       stdout,
		stderr:       stderr,
		newWorkspace: openWorkspace,
		runServer:    runDevServer,
		runUI:        runChatUI,
		version:      buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"ui":      NewUICommand(wiring.stderr, wiring.newWorkspace, wiring.runUI),
		"bots":    NewBotsCommand(wiring.stdout, wiring.stderr),
		"send":    NewSendCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"history": NewHistoryCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"show":    NewShowCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"delete":  NewDeleteCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"signup":  NewSignUpCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"login":   NewLoginCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"oauth":   NewOAuthCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"logout":  NewLogoutCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"whoami":  NewWhoAmICommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"profile": NewProfileCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"passwd":  NewPasswdCommand(wiring.stdout, wiring.stderr, wiring.newWorkspace),
		"serve":   NewServeCommand(wiring.stderr, wiring.runServer, wiring.version),
		"config":  NewConfigCommand(wiring.stdout, wiring.stderr),
	}
}
