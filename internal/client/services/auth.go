// Package services contains application services for the dabooks client.
// This file defines the authentication service: login, registration and
// logout, tying the API client to the session store.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dabooks/internal/client/client"
	"github.com/dmitrijs2005/dabooks/internal/client/models"
	"github.com/dmitrijs2005/dabooks/internal/client/session"
)

// ErrMissingCredentials is returned before any network call when a required
// credential field is blank.
var ErrMissingCredentials = errors.New("username and password are required")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the server and start a session.
//   - Register: create a new user on the server. It does not log in.
//   - Logout: end the current session; a no-op when anonymous.
//   - Close: release underlying client resources.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
	Register(ctx context.Context, username, email, password string) error
	Logout(ctx context.Context) error
	Close(ctx context.Context) error
}

// Sessions is the part of the session store the service writes to.
type Sessions interface {
	Login(ctx context.Context, token, username string) error
	Logout(ctx context.Context, reason session.Reason) error
}

type authService struct {
	client   client.Client
	sessions Sessions
}

// NewAuthService constructs an AuthService bound to the given API client and
// session store.
func NewAuthService(c client.Client, s Sessions) AuthService {
	return &authService{client: c, sessions: s}
}

// Login returns the username the server confirmed, which becomes the
// session's username.
func (a *authService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ErrMissingCredentials
	}

	res, err := a.client.Login(ctx, models.Credentials{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("login error: %w", err)
	}

	if err := a.sessions.Login(ctx, res.AccessToken, res.Username); err != nil {
		return "", fmt.Errorf("session error: %w", err)
	}
	return res.Username, nil
}

func (a *authService) Register(ctx context.Context, username, email, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	reg := models.Registration{Username: username, Email: strings.TrimSpace(email), Password: password}
	if err := a.client.Register(ctx, reg); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.sessions.Logout(ctx, session.ReasonUser)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
