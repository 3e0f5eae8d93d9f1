package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"botdesk/internal/auth"
)

type SignUpCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewSignUpCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *SignUpCommand {
	return &SignUpCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *SignUpCommand) Run(args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if err := ws.session.SignUp(ctx, *email, *password, *name); err != nil {
		return err
	}
	printIdentity(c.stdout, ws.session.Identity())
	return nil
}

type LoginCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewLoginCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *LoginCommand {
	return &LoginCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *LoginCommand) Run(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if err := ws.session.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s\n", ws.session.Identity().Email)
	return nil
}

type OAuthCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewOAuthCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *OAuthCommand {
	return &OAuthCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *OAuthCommand) Run(args []string) error {
	fs := flag.NewFlagSet("oauth", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	provider := fs.String("provider", "", "identity provider: google|github")
	if err := fs.Parse(args); err != nil {
		return err
	}
	kind, ok := auth.ParseKind(*provider)
	if !ok {
		return fmt.Errorf("unsupported provider %q (want google or github)", *provider)
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	if err := ws.session.SignInWithProvider(ctx, kind); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "signed in as %s\n", ws.session.Identity().Email)
	return nil
}

type LogoutCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewLogoutCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *LogoutCommand {
	return &LogoutCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *LogoutCommand) Run(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
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
	if err := ws.session.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "signed out")
	return nil
}

type WhoAmICommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewWhoAmICommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *WhoAmICommand {
	return &WhoAmICommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *WhoAmICommand) Run(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	ws, err := c.newWorkspace(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()
	identity, err := requireIdentity(ctx, ws)
	if err != nil {
		return err
	}
	printIdentity(c.stdout, identity)
	return nil
}

type ProfileCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewProfileCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *ProfileCommand {
	return &ProfileCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *ProfileCommand) Run(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	name := fs.String("name", "", "new display name")
	avatar := fs.String("avatar", "", "new avatar url")
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
	if err := ws.session.UpdateProfile(ctx, *name, *avatar); err != nil {
		return err
	}
	printIdentity(c.stdout, ws.session.Identity())
	return nil
}

type PasswdCommand struct {
	stdout       io.Writer
	stderr       io.Writer
	newWorkspace workspaceFactory
}

func NewPasswdCommand(stdout, stderr io.Writer, newWorkspace workspaceFactory) *PasswdCommand {
	return &PasswdCommand{stdout: stdout, stderr: stderr, newWorkspace: newWorkspace}
}

func (c *PasswdCommand) Run(args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
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
	if err := ws.session.ChangePassword(ctx, *current, *next); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "password changed")
	return nil
}
