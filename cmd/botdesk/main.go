package main

import (
	"fmt"
	"os"
)

const usageText = `botdesk is a terminal client for topic-specialized chatbots.

Usage:
  botdesk <command> [flags]

Commands:
  ui       open the full-screen chat client (default)
  bots     list chatbots
  send     send a message to a chatbot
  history  list saved conversations for a chatbot
  show     print a saved conversation
  delete   delete a saved conversation
  signup   create an account
  login    sign in with email and password
  oauth    sign in with a provider (google|github)
  logout   sign out and forget the stored token
  whoami   print the signed-in identity
  profile  update display name or avatar
  passwd   change password
  serve    run the local development backend
  config   print configuration (effective or defaults)
  help     show help

Flags:
  -h, --help   show help

Examples:
  botdesk serve
  botdesk signup --email ada@example.com --password secret1 --name Ada
  botdesk bots --category Programming
  botdesk send --bot chatbot-4 "How do I reverse a slice?"
  botdesk history --bot chatbot-4
  botdesk config --format toml
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	if len(args) == 0 {
		exitOnErr("ui", commands["ui"].Run(nil), wiring.stderr)
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
