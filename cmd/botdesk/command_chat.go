package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"botdesk/internal/catalog"
	"botdesk/internal/types"
)

type BotsCommand struct {
	stdout io.Writer
	stderr io.Writer
}

func NewBotsCommand(stdout, stderr io.Writer) *BotsCommand {
	return &BotsCommand{stdout: stdout, stderr: stderr}
}

func (c *BotsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("bots", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	category := fs.String("category", "", "only list chatbots in this category")
	search := fs.String("search", "", "match name or description")
	top := fs.Int("top", 0, "list the N most used chatbots")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *top > 0 {
		printChatbots(c.stdout, catalog.Top(*top))
		return nil
	}
	var filter types.Category
	if strings.TrimSpace(*category) != "" {
		parsed, ok := types.ParseCategory(*category)
		if !ok {
			return fmt.Errorf("unknown category %q", *category)
		}
		filter = parsed
		if info, ok := catalog.CategoryDetails(parsed); ok {
			fmt.Fprintf(c.stderr, "%s: %s\n", info.Category, info.Description)
		}
	}
	printChatbots(c.stdout, catalog.Filter(*search, filter))
	return nil
}

// selectBot requires a signed-in session and activates the chatbot named by
// id or by name.
func selectBot(ctx context.Context, ws *workspace, id string) (types.Chatbot, error) {
	if strings.TrimSpace(id) == "" {
		return types.Chatbot{}, errors.New("--bot is required")
	}
	bot, ok := catalog.Resolve(id)
	if !ok {
		return types.Chatbot{}, fmt.Errorf("unknown chatbot %q (see `botdesk bots`)", id)
	}
	if _, err := requireIdentity(ctx, ws); err != nil {
		return types.Chatbot{}, err
	}
	if !ws.chats.SelectChatbotByID(bot.ID) {
		return types.Chatbot{}, fmt.Errorf("chatbot %q is unavailable", bot.ID)
	}
	return bot, nil
}

type SendCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewSendCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *SendCommand {
	return &SendCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *SendCommand) Run(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	botID := fs.String("bot", "", "chatbot id")
	chatID := fs.String("chat", "", "continue an existing conversation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		return errors.New("message is required")
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if _, err := selectBot(ctx, ws, *botID); err != nil {
		return err
	}
	if id := strings.TrimSpace(*chatID); id != "" {
		if ws.chats.LoadChatByID(ctx, id) == nil {
			return fmt.Errorf("chat %s could not be loaded", id)
		}
	}

	ok, err := ws.chats.SendMessage(ctx, text)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("message was not sent")
	}
	conv := ws.chats.Snapshot().Conversation
	if conv == nil || len(conv.Messages) == 0 {
		return errors.New("no reply received")
	}
	fmt.Fprintln(c.stdout, conv.Messages[len(conv.Messages)-1].Content)
	fmt.Fprintf(c.stderr, "chat %s\n", conv.ID())
	return nil
}

type HistoryCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewHistoryCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *HistoryCommand {
	return &HistoryCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *HistoryCommand) Run(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	botID := fs.String("bot", "", "chatbot id")
	cached := fs.Bool("cached", false, "print the locally cached list without contacting the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if *cached {
		if strings.TrimSpace(*botID) == "" {
			return errors.New("--bot is required")
		}
		printConversations(c.stdout, ws.chats.History(ctx, strings.TrimSpace(*botID)))
		return nil
	}
	bot, err := selectBot(ctx, ws, *botID)
	if err != nil {
		return err
	}
	list, err := ws.chats.GetChatHistory(ctx, bot.Category)
	if err != nil {
		return err
	}
	printConversations(c.stdout, list)
	return nil
}

type ShowCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewShowCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *ShowCommand {
	return &ShowCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *ShowCommand) Run(args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	botID := fs.String("bot", "", "chatbot id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: botdesk show --bot <id> <chat-id>")
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	bot, err := selectBot(ctx, ws, *botID)
	if err != nil {
		return err
	}
	conv := ws.chats.LoadChatByID(ctx, fs.Arg(0))
	if conv == nil {
		return fmt.Errorf("chat %s could not be loaded", fs.Arg(0))
	}
	printTranscript(c.stdout, conv, bot.Name)
	return nil
}

type DeleteCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewDeleteCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *DeleteCommand {
	return &DeleteCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *DeleteCommand) Run(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: botdesk delete <chat-id>")
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
	if !ws.chats.DeleteChatByID(ctx, fs.Arg(0)) {
		return fmt.Errorf("chat %s could not be deleted", fs.Arg(0))
	}
	fmt.Fprintf(c.stdout, "deleted %s\n", fs.Arg(0))
	return nil
}
