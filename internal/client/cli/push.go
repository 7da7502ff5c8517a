package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Push manages the push subscription held by the agent.
func (a *App) Push(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: push on|off|state|test")
	}

	switch args[0] {
	case "on":
		a.mu.Lock()
		a.grantNext = true
		a.mu.Unlock()
		defer func() {
			a.mu.Lock()
			a.grantNext = false
			a.mu.Unlock()
		}()

		sub, err := a.agent.PushSubscribe(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Push notifications enabled (%s)\n", sub.Endpoint)

	case "off":
		if err := a.agent.PushUnsubscribe(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Push notifications disabled")

	case "state":
		st, err := a.agent.PushState(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "state: %s, enabled: %t, permission: %s\n", st.State, st.Enabled, st.Permission)
		if st.Endpoint != "" {
			fmt.Fprintf(a.out, "endpoint: %s\n", st.Endpoint)
		}

	case "test":
		n, err := a.agent.TestNotification(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Shown %s: %s\n", n.ID, n.Title)

	default:
		return fmt.Errorf("unknown push command %q", args[0])
	}
	return nil
}

// Notifications lists the notifications the agent is showing.
func (a *App) Notifications(ctx context.Context, args []string) error {
	tag := ""
	if len(args) > 0 {
		tag = args[0]
	}
	list, err := a.agent.Notifications(ctx, tag)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notifications")
		return nil
	}
	for _, n := range list {
		fmt.Fprintf(a.out, "%s  %s  %s\n", n.ID, n.Title, n.Body)
		if len(n.Actions) > 0 {
			names := make([]string, 0, len(n.Actions))
			for _, act := range n.Actions {
				names = append(names, act.Action)
			}
			fmt.Fprintf(a.out, "    actions: %s\n", strings.Join(names, ", "))
		}
	}
	return nil
}

// Click activates a notification, optionally through one of its actions.
func (a *App) Click(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: click <id> [action]")
	}
	action := ""
	if len(args) == 2 {
		action = args[1]
	}
	return a.agent.Click(ctx, args[0], action)
}
