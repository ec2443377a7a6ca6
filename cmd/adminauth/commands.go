package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/admin"
	"golang.org/x/term"
)

const usage = `usage: adminauth [--config file.toml] [--json] <command> [flags]

commands:
  login            --email E [--password P]
  logout
  forgot-password  --email E
  verify-otp       --email E --code C
  reset-password   --email E --code C [--password P]
  update-password  [--current P] [--new P]
  register         --email E --name N [--password P]
  status
  overview         dashboard, users and notifications at a glance
  shell            interactive session with a live lockout countdown
`

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

// app is one CLI invocation, or one shell session.
type app struct {
	client *adminauth.Client
	print  printer
	in     *bufio.Reader
	stdin  io.Reader
	// secret overrides how hidden values are read; the shell sets it.
	secret func(prompt string) (string, error)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("adminauth", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", os.Getenv("ADMINAUTH_CONFIG"), "TOML configuration file")
	jsonOut := global.Bool("json", false, "print JSON")
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	client, err := buildClient(*configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "adminauth: %v\n", err)
		return exitFail
	}
	defer client.Close()

	a := &app{
		client: client,
		print:  printer{out: stdout, json: *jsonOut},
		in:     bufio.NewReader(stdin),
		stdin:  stdin,
	}
	if rest[0] == "shell" {
		return a.shell(ctx)
	}
	return a.dispatch(ctx, rest, stderr)
}

// buildClient loads the configuration. The CLI keeps session tokens in SQLite
// unless another backend is configured.
func buildClient(configPath string, stderr io.Writer) (*adminauth.Client, error) {
	cfg, err := adminauth.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == adminauth.StorageMemory {
		path, err := defaultTokenPath()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Backend = adminauth.StorageSQLite
		cfg.Storage.SQLitePath = path
	}
	return adminauth.New().
		WithConfig(cfg).
		WithLogger(log.New(stderr, "", log.LstdFlags)).
		Build()
}

func defaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "adminauth", "tokens.db"), nil
}

func (a *app) dispatch(ctx context.Context, args []string, stderr io.Writer) int {
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "adminauth: unknown command %q\n\n%s", name, usage)
		return exitUsage
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	ok, err := cmd(ctx, a, fs, rest)
	switch {
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return exitUsage
	case err != nil:
		fmt.Fprintf(stderr, "adminauth: %s: %v\n", name, err)
		return exitUsage
	case !ok:
		return exitFail
	}
	return exitOK
}

// command parses its flags from args and reports whether the operation
// succeeded. A non-nil error is a usage problem.
type command func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error)

var commands map[string]command

func init() {
	commands = map[string]command{
		"login":           cmdLogin,
		"logout":          cmdLogout,
		"forgot-password": cmdForgotPassword,
		"verify-otp":      cmdVerifyOTP,
		"reset-password":  cmdResetPassword,
		"update-password": cmdUpdatePassword,
		"register":        cmdRegister,
		"status":          cmdStatus,
		"overview":        cmdOverview,
	}
}

func required(values map[string]string) error {
	for name, v := range values {
		if v == "" {
			return fmt.Errorf("--%s is required", name)
		}
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	email := fs.String("email", "", "administrator email")
	pass := fs.String("password", "", "password; prompted when omitted")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if err := required(map[string]string{"email": *email}); err != nil {
		return false, err
	}
	secret, err := a.readSecret("Password: ", *pass)
	if err != nil {
		return false, err
	}

	res := a.client.Login(ctx, *email, secret)
	msg := "Signed in"
	if user, ok := res.Payload.(*adminauth.UserRecord); ok && user.Name() != "" {
		msg = "Signed in as " + user.Name()
	}
	a.print.result(msg, res)
	return res.Success, nil
}

func cmdLogout(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	res := a.client.Logout(ctx)
	a.print.result("Signed out", res)
	return res.Success, nil
}

func cmdForgotPassword(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if err := required(map[string]string{"email": *email}); err != nil {
		return false, err
	}
	res := a.client.ForgotPassword(ctx, adminauth.Payload{"email": *email})
	a.print.result("Reset code requested", res)
	return res.Success, nil
}

func cmdVerifyOTP(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "one-time code")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if err := required(map[string]string{"email": *email, "code": *code}); err != nil {
		return false, err
	}
	res := a.client.VerifyOTP(ctx, adminauth.Payload{"email": *email, "otp": *code})
	a.print.result("Code verified", res)
	return res.Success, nil
}

// cmdResetPassword verifies the code and sets the new password in one run:
// the OTP token only lives in this process.
func cmdResetPassword(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "one-time code")
	pass := fs.String("password", "", "new password; prompted when omitted")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if err := required(map[string]string{"email": *email, "code": *code}); err != nil {
		return false, err
	}

	if _, found, _ := a.client.OTPToken(ctx); !found {
		res := a.client.VerifyOTP(ctx, adminauth.Payload{"email": *email, "otp": *code})
		if !res.Success {
			a.print.result("", res)
			return false, nil
		}
	}
	secret, err := a.readSecret("New password: ", *pass)
	if err != nil {
		return false, err
	}
	res := a.client.UpdatePasswordAuth(ctx, adminauth.Payload{"newPassword": secret})
	a.print.result("Password reset, sign in again", res)
	return res.Success, nil
}

func cmdUpdatePassword(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	current := fs.String("current", "", "current password; prompted when omitted")
	next := fs.String("new", "", "new password; prompted when omitted")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	cur, err := a.readSecret("Current password: ", *current)
	if err != nil {
		return false, err
	}
	nw, err := a.readSecret("New password: ", *next)
	if err != nil {
		return false, err
	}
	res := a.client.UpdatePassword(ctx, adminauth.Payload{"currentPassword": cur, "newPassword": nw})
	a.print.result("Password updated", res)
	return res.Success, nil
}

func cmdRegister(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	pass := fs.String("password", "", "password; prompted when omitted")
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if err := required(map[string]string{"email": *email, "name": *name}); err != nil {
		return false, err
	}
	secret, err := a.readSecret("Password: ", *pass)
	if err != nil {
		return false, err
	}
	res := a.client.Register(ctx, *email, secret, *name)
	a.print.result("Account created", res)
	return res.Success, nil
}

type statusOutput struct {
	State            string `json:"state"`
	SessionToken     bool   `json:"session_token"`
	SessionExpiresAt string `json:"session_expires_at,omitempty"`
	OTPToken         bool   `json:"otp_token"`
	LockedOut        bool   `json:"locked_out"`
	FailedAttempts   int    `json:"failed_attempts"`
	LockoutRemaining string `json:"lockout_remaining,omitempty"`
}

func cmdStatus(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		return false, err
	}

	out := statusOutput{State: a.client.State().String()}
	rec, found, err := a.client.SessionToken(ctx)
	if err != nil {
		a.print.warn("reading session token: %v", err)
	}
	if found {
		out.SessionToken = true
		out.SessionExpiresAt = rec.ExpiresAt.Format(time.RFC3339)
	}
	_, out.OTPToken, _ = a.client.OTPToken(ctx)
	lock := a.client.Tick(time.Now())
	out.LockedOut = lock.Locked()
	out.FailedAttempts = lock.FailedAttempts
	if lock.Locked() {
		out.LockoutRemaining = lock.Remaining.Round(time.Second).String()
	}

	if a.print.json {
		a.print.encode(out)
		return true, nil
	}
	a.print.field("State", out.State)
	if out.SessionToken {
		a.print.field("Session", "active until "+out.SessionExpiresAt)
	} else {
		a.print.field("Session", "none")
	}
	a.print.field("OTP token", out.OTPToken)
	a.print.field("Failed attempts", out.FailedAttempts)
	if out.LockedOut {
		a.print.field("Locked for", out.LockoutRemaining)
	}
	return true, nil
}

func cmdOverview(ctx context.Context, a *app, fs *flag.FlagSet, args []string) (bool, error) {
	limit := fs.Int("limit", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return false, err
	}

	ov, err := admin.New(a.client.Gateway()).Overview(ctx, admin.Page{Page: 1, Limit: *limit})
	if err != nil {
		a.print.result("", adminauth.Result{Error: err.Error()})
		return false, nil
	}
	if a.print.json {
		a.print.encode(ov)
		return true, nil
	}
	for key, v := range ov.Dashboard {
		a.print.field(key, v)
	}
	a.print.field("Users", ov.Users.Total)
	for _, u := range ov.Users.Users {
		a.print.note("    %s <%s>", u.String("name"), u.String("email"))
	}
	a.print.field("Notifications", ov.Notifications.Total)
	for _, n := range ov.Notifications.Notifications {
		a.print.note("    %s", n.String("title"))
	}
	return true, nil
}

// readSecret returns flagValue when set. Otherwise it prompts without echo on
// a terminal, or reads one line from non-interactive input.
func (a *app) readSecret(prompt, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if a.secret != nil {
		return a.secret(prompt)
	}
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.print.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.print.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("%w: no password given", errUsage)
	}
	return line, nil
}
