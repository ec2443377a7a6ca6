// Command adminauth signs an administrator in and out of the admin backend
// and drives the password reset flow from a terminal.
//
//	adminauth [--config file.toml] [--json] <command> [flags]
//
// Session tokens are kept in a SQLite file so consecutive invocations share
// one session. The lockout lives in memory; use "shell" to keep one client,
// and its lockout countdown, alive across commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
