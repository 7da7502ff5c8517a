// Package services contains application services for the storysync client.
// This file defines the authentication service: register, login, logout and
// the token snapshot the agent falls back to when no foreground answers.
package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/api"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/cryptox"
)

// MinPasswordLength is the story API's password rule.
const MinPasswordLength = 8

// AuthAPI is the part of the story API client used for authentication.
type AuthAPI interface {
	Register(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
}

// Session is the logged-in user. Name and UserID are empty for a session
// restored from the snapshot.
type Session struct {
	UserID string
	Name   string
	Token  string
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register: create an account on the story API.
//   - Login: authenticate, keep the token in memory and persist the snapshot.
//   - Restore: resume from a non-expired snapshot after a restart.
//   - Logout: forget the token in memory and on disk.
//   - Token: the current bearer token, "" when logged out.
type AuthService interface {
	Register(ctx context.Context, name, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) (*Session, error)
	Restore(ctx context.Context) (*Session, error)
	Logout(ctx context.Context) error
	Session() *Session
	Token() string
}

type authService struct {
	api  AuthAPI
	meta metadata.Repository
	now  func() time.Time

	mu      sync.RWMutex
	session *Session
}

// NewAuthService constructs an AuthService bound to the given API client and
// metadata repository.
func NewAuthService(a AuthAPI, meta metadata.Repository) AuthService {
	return &authService{api: a, meta: meta, now: time.Now}
}

func validateCredentials(email string, password []byte) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email %q", common.ErrValidation, email)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, MinPasswordLength)
	}
	return nil
}

func (a *authService) Register(ctx context.Context, name, email string, password []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	return a.api.Register(ctx, name, email, string(password))
}

// Login authenticates against the story API and saves the token snapshot.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	res, err := a.api.Login(ctx, email, string(password))
	if err != nil {
		return nil, err
	}

	if err := a.meta.Set(ctx, metadata.KeyTokenSnapshot, []byte(res.Token)); err != nil {
		return nil, fmt.Errorf("token snapshot saving error: %w", err)
	}

	s := &Session{UserID: res.UserID, Name: res.Name, Token: res.Token}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	return s, nil
}

// Restore loads the token snapshot. It returns common.ErrNoCredential when
// there is none or it has expired.
func (a *authService) Restore(ctx context.Context) (*Session, error) {
	raw, err := a.meta.Get(ctx, metadata.KeyTokenSnapshot)
	if err != nil {
		return nil, err
	}
	tok := string(raw)
	if tok == "" || cryptox.TokenExpired(tok, a.now()) {
		return nil, common.ErrNoCredential
	}

	s := &Session{Token: tok}
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
	return s, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	return a.meta.Delete(ctx, metadata.KeyTokenSnapshot)
}

func (a *authService) Session() *Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

func (a *authService) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.Token
}
