package cli

import (
	"context"
	"fmt"
	"time"
)

// getSimpleText, getMultiline and getPassword are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getMultiline  = GetMultiline
	getPassword   = GetPassword
)

// Register prompts for a username, email and password and creates the
// account. Registration does not log in; the user is pointed to login.
func (a *App) Register(ctx context.Context) error {
	if a.isLoggedIn() {
		a.warn("Already logged in. Log out first to register another account.")
		return nil
	}

	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, username, email, password); err != nil {
		a.printError(err)
		return err
	}

	a.success("Registration successful. You can now log in.")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	name, err := a.auth.Login(ctx, username, password)
	if err != nil {
		a.logger.Info(ctx, "login unsuccessful", "username", username, "error", err)
		a.printError(err)
		return err
	}

	a.success(fmt.Sprintf("Welcome, %s!", name))
	return nil
}

// Logout ends the session. The session observer prints the notice.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		a.println("Not logged in.")
		return nil
	}
	if err := a.auth.Logout(ctx); err != nil {
		a.printError(err)
		return err
	}
	return nil
}

// WhoAmI prints the session's username and when its token expires.
func (a *App) WhoAmI(ctx context.Context) error {
	s := a.sessions.Snapshot()
	if !s.Authenticated {
		a.println("Not logged in.")
		return nil
	}

	line := "Logged in as " + a.style().Accent.Render(s.Username)
	if !s.ExpiresAt.IsZero() {
		line += a.style().Muted.Render(fmt.Sprintf(" (session expires %s)", s.ExpiresAt.Local().Format(time.DateTime)))
	}
	a.println(line)
	return nil
}
