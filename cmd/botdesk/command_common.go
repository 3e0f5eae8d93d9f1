package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"
	"time"

	"botdesk/internal/types"
)

const version = "dev"

var errNotSignedIn = errors.New("not signed in; run `botdesk login` or `botdesk signup` first")

func printChatbots(output io.Writer, bots []types.Chatbot) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tCATEGORY\tUSES\tDESCRIPTION")
	for _, bot := range bots {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\n", bot.ID, bot.Name, bot.Category, bot.UsageCount, bot.Description)
	}
	_ = writer.Flush()
}

func printConversations(output io.Writer, conversations []types.Conversation) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tUPDATED\tTITLE")
	for i := range conversations {
		conv := &conversations[i]
		fmt.Fprintf(writer, "%s\t%s\t%s\n", conv.ID(), conv.LastTouched().Local().Format(time.DateTime), conv.Title)
	}
	_ = writer.Flush()
}

func printTranscript(output io.Writer, conv *types.Conversation, botName string) {
	fmt.Fprintf(output, "# %s\n", conv.Title)
	for _, msg := range conv.Messages {
		who := botName
		if msg.Sender == types.SenderUser {
			who = "you"
		}
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = " (" + msg.Timestamp.Local().Format(time.DateTime) + ")"
		}
		fmt.Fprintf(output, "\n[%s]%s\n%s\n", who, stamp, strings.TrimRight(msg.Content, "\n"))
	}
}

func printIdentity(output io.Writer, identity *types.Identity) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintf(writer, "id\t%s\n", identity.ID)
	fmt.Fprintf(writer, "name\t%s\n", identity.DisplayName)
	fmt.Fprintf(writer, "email\t%s\n", identity.Email)
	if identity.AvatarURL != "" {
		fmt.Fprintf(writer, "avatar\t%s\n", identity.AvatarURL)
	}
	_ = writer.Flush()
}

// requireIdentity waits for the session to resolve and fails when nobody is
// signed in.
func requireIdentity(ctx context.Context, ws *workspace) (*types.Identity, error) {
	waitCtx, cancel := context.WithTimeout(ctx, ws.cfg.RequestTimeout())
	defer cancel()
	if err := ws.session.WaitReady(waitCtx); err != nil {
		return nil, err
	}
	identity := ws.session.Identity()
	if identity == nil {
		return nil, errNotSignedIn
	}
	return identity, nil
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
