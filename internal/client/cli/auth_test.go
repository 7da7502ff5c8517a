package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/storysync/internal/client/services"
)

func stubInputs(t *testing.T, answers []string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(answers) {
			return "", io.EOF
		}
		i++
		return answers[i-1], nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	token   string
	session *services.Session

	regName, regEmail string
	regPass           []byte
	regErr            error

	loginEmail string
	loginPass  []byte
	loginErr   error

	logoutCalled bool
	logoutErr    error
}

func (f *fakeAuth) Register(_ context.Context, name, email string, pass []byte) error {
	f.regName, f.regEmail, f.regPass = name, email, append([]byte(nil), pass...)
	return f.regErr
}
func (f *fakeAuth) Login(_ context.Context, email string, pass []byte) (*services.Session, error) {
	f.loginEmail, f.loginPass = email, append([]byte(nil), pass...)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.session = &services.Session{Name: "Alice", Token: "tok"}
	f.token = "tok"
	return f.session, nil
}
func (f *fakeAuth) Restore(context.Context) (*services.Session, error) { return f.session, nil }
func (f *fakeAuth) Logout(context.Context) error {
	f.logoutCalled = true
	if f.logoutErr == nil {
		f.token, f.session = "", nil
	}
	return f.logoutErr
}
func (f *fakeAuth) Session() *services.Session { return f.session }
func (f *fakeAuth) Token() string               { return f.token }

func TestRegister_Success(t *testing.T) {
	f := &fakeAuth{}
	a := &App{authService: f, out: io.Discard}

	pw := []byte("secret12")
	stubInputs(t, []string{"Alice", "alice@example.org"}, pw)

	if err := a.Register(context.Background()); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if f.regName != "Alice" || f.regEmail != "alice@example.org" {
		t.Fatalf("Register args mismatch: %q %q", f.regName, f.regEmail)
	}
	if string(f.regPass) != "secret12" {
		t.Fatalf("Register pass mismatch: %q", string(f.regPass))
	}
	if !bytes.Equal(pw, make([]byte, len(pw))) {
		t.Fatalf("password not wiped: %q", pw)
	}
}

func TestRegister_InputError(t *testing.T) {
	a := &App{authService: &fakeAuth{}, out: io.Discard}
	stubInputs(t, []string{"Alice"}, []byte("x"))

	if err := a.Register(context.Background()); err == nil {
		t.Fatalf("want error when input ends early")
	}
}

func TestLogin(t *testing.T) {
	var buf bytes.Buffer
	f := &fakeAuth{}
	a := &App{authService: f, out: &buf}
	stubInputs(t, []string{"alice@example.org"}, []byte("secret12"))

	if err := a.Login(context.Background()); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if f.loginEmail != "alice@example.org" {
		t.Fatalf("Login email mismatch: %q", f.loginEmail)
	}
	if !a.isLoggedIn() {
		t.Fatalf("expected logged in")
	}
	if got := buf.String(); got != "Logged in as Alice\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestLogin_ErrorWrapped(t *testing.T) {
	cause := errors.New("401")
	a := &App{authService: &fakeAuth{loginErr: cause}, out: io.Discard}
	stubInputs(t, []string{"a@b.c"}, []byte("secret12"))

	err := a.Login(context.Background())
	if !errors.Is(err, cause) {
		t.Fatalf("want wrapped cause, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	f := &fakeAuth{token: "tok"}
	a := &App{authService: f, out: io.Discard}
	a.lastStories = nil
	if err := a.Logout(context.Background()); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if !f.logoutCalled {
		t.Fatalf("Logout not called")
	}
	if a.isLoggedIn() {
		t.Fatalf("still logged in")
	}
}

func TestLogout_ErrorPropagates(t *testing.T) {
	f := &fakeAuth{logoutErr: errors.New("clean-fail")}
	a := &App{authService: f, out: io.Discard}
	if err := a.Logout(context.Background()); err == nil {
		t.Fatalf("want error from Logout")
	}
}
