package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Stories(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Pending(ctx context.Context) error
	Sync(ctx context.Context) error
	Favorite(ctx context.Context, args []string) error
	Favorites(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Unfavorite(ctx context.Context, args []string) error
	Push(ctx context.Context, args []string) error
	Notifications(ctx context.Context, args []string) error
	Click(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, favs, search, exit"
	helpLoggedIn  = "Available commands: (l)ist, show, add, pending, sync, fav, favs, search, unfav, " +
		"push on|off|state|test, notifications, click, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the storysync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a' with the remaining tokens as
// arguments. The loop exits on scanner EOF or when the user types "exit" or
// "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - register                 create an account
//	  - login                    authenticate
//	  - favs [key] [order]       list favorites (createdAt|favoritedAt|name, asc|desc)
//	  - search <text>            search favorites
//
//	Logged in, additionally:
//	  - l | list [map] [page]    list stories; "map" asks for located stories only
//	  - show <n|id>              show a story from the last list
//	  - add                      submit a story (queued when offline)
//	  - pending                  show queued submissions
//	  - sync                     ask the agent to upload queued submissions now
//	  - fav <n|id>, unfav <id>   bookmark or drop a story
//	  - push on|off|state|test   manage push notifications
//	  - notifications [tag]      list shown notifications
//	  - click <id> [action]      activate a notification
//	  - logout
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("story %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "favs", "favorites":
			err = a.Favorites(ctx, args)
		case "search":
			err = a.Search(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if !a.isLoggedIn() {
				printlnFn("Unknown command:", cmd, "(log in first?)")
				continue
			}
			err = dispatchLoggedIn(ctx, a, cmd, args)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func dispatchLoggedIn(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "l", "list":
		return a.Stories(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "add":
		return a.Add(ctx)
	case "pending":
		return a.Pending(ctx)
	case "sync":
		return a.Sync(ctx)
	case "fav":
		return a.Favorite(ctx, args)
	case "unfav":
		return a.Unfavorite(ctx, args)
	case "push":
		return a.Push(ctx, args)
	case "notifications":
		return a.Notifications(ctx, args)
	case "click":
		return a.Click(ctx, args)
	case "logout":
		return a.Logout(ctx)
	}
	printlnFn("Unknown command:", cmd)
	return nil
}
