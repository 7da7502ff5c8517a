package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool
	failOn   string

	calls []string
}

func (f *fakeExec) record(name string, args ...string) error {
	call := name
	if len(args) > 0 {
		call += " " + strings.Join(args, " ")
	}
	f.calls = append(f.calls, call)
	if name == f.failOn {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool {
	return f.loggedIn
}
func (f *fakeExec) Register(context.Context) error {
	return f.record("register")
}
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Add(context.Context) error {
	return f.record("add")
}
func (f *fakeExec) Pending(context.Context) error {
	return f.record("pending")
}
func (f *fakeExec) Sync(context.Context) error {
	return f.record("sync")
}
func (f *fakeExec) Stories(_ context.Context, a []string) error {
	return f.record("list", a...)
}
func (f *fakeExec) Show(_ context.Context, a []string) error {
	return f.record("show", a...)
}
func (f *fakeExec) Favorite(_ context.Context, a []string) error {
	return f.record("fav", a...)
}
func (f *fakeExec) Favorites(_ context.Context, a []string) error {
	return f.record("favs", a...)
}
func (f *fakeExec) Search(_ context.Context, a []string) error {
	return f.record("search", a...)
}
func (f *fakeExec) Unfavorite(_ context.Context, a []string) error {
	return f.record("unfav", a...)
}
func (f *fakeExec) Push(_ context.Context, a []string) error {
	return f.record("push", a...)
}
func (f *fakeExec) Notifications(_ context.Context, a []string) error {
	return f.record("notifications", a...)
}
func (f *fakeExec) Click(_ context.Context, a []string) error {
	return f.record("click", a...)
}

func capturePrints(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	capturePrints(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"add",
		"favs name asc",
		"login",
		"help",
		"",
		"l map 2",
		"show 1",
		"add",
		"pending",
		"sync",
		"fav 1",
		"unfav story-1",
		"search sunset beach",
		"push on",
		"notifications sync-stories",
		"click n1 view",
		"foobar",
		"logout",
		"sync",
		"exit",
		"register",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	want := []string{
		"favs name asc",
		"login",
		"list map 2",
		"show 1",
		"add",
		"pending",
		"sync",
		"fav 1",
		"unfav story-1",
		"search sunset beach",
		"push on",
		"notifications sync-stories",
		"click n1 view",
		"logout",
	}
	if strings.Join(exec.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("calls mismatch:\n got %v\nwant %v", exec.calls, want)
	}
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	lines := capturePrints(t)

	exec := &fakeExec{loggedIn: true, failOn: "sync"}
	input := strings.NewReader("sync\npending\nquit\n")
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	if len(exec.calls) != 2 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	found := false
	for _, l := range *lines {
		if l == "Error: boom" {
			found = true
		}
	}
	if !found {
		t.Fatalf("error not printed: %v", *lines)
	}
}

func TestRunREPL_PromptAndHelp(t *testing.T) {
	lines := capturePrints(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "(offline)" }, bufio.NewScanner(strings.NewReader("help\n")))

	if (*lines)[0] != "story (offline) > " {
		t.Fatalf("unexpected prompt %q", (*lines)[0])
	}
	if (*lines)[1] != helpLoggedOut {
		t.Fatalf("unexpected help %q", (*lines)[1])
	}
}
