package cli

import (
	"context"
	"fmt"
)

// Token hands the agent the current session token.
func (a *App) Token(context.Context) string {
	if a.authService == nil {
		return ""
	}
	return a.authService.Token()
}

// Permission grants notifications only while "push on" is waiting for an
// answer. Any other prompt is dismissed.
func (a *App) Permission(context.Context) (granted, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.grantNext {
		return true, true
	}
	return false, false
}

func (a *App) Focus(context.Context) {
	fmt.Fprintln(a.out, "\n[agent] focus requested")
}

// Navigate follows a notification activation to its target.
func (a *App) Navigate(_ context.Context, url string) {
	a.mu.Lock()
	a.location = url
	a.mu.Unlock()
	fmt.Fprintf(a.out, "\n[agent] opened %s\n", url)
}
