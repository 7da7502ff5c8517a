package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storysync/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a name, an email and a password and creates the
// account on the story API. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
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
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, name, email, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success! You can log in now.")
	return nil
}

// Login prompts for credentials and authenticates against the story API.
// The token snapshot it leaves behind lets the agent upload queued stories
// while no client is running.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", s.Name)
	return nil
}

// Logout forgets the session in memory and the snapshot on disk.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.lastStories = nil
	a.mu.Unlock()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
