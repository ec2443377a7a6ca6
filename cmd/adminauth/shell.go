package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// lineReader is the input side of the shell.
type lineReader interface {
	Prompt(prompt string) (string, error)
	PasswordPrompt(prompt string) (string, error)
	Close() error
}

// terminalReader gives the shell line editing and history.
type terminalReader struct {
	line        *liner.State
	historyFile string
}

func newTerminalReader() *terminalReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &terminalReader{line: line}
	if dir, err := os.UserConfigDir(); err == nil {
		r.historyFile = filepath.Join(dir, "adminauth", "shell_history")
		if f, err := os.Open(r.historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *terminalReader) Prompt(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *terminalReader) PasswordPrompt(prompt string) (string, error) {
	return r.line.PasswordPrompt(prompt)
}

func (r *terminalReader) Close() error {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				r.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return r.line.Close()
}

// scriptReader reads shell commands from non-interactive input.
type scriptReader struct {
	in  *bufio.Reader
	out io.Writer
}

func (r scriptReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r scriptReader) PasswordPrompt(prompt string) (string, error) {
	return r.Prompt(prompt)
}

func (scriptReader) Close() error { return nil }

// shell keeps one client alive across commands so the lockout countdown
// persists between login attempts.
func (a *app) shell(ctx context.Context) int {
	var reader lineReader
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		reader = newTerminalReader()
	} else {
		reader = scriptReader{in: a.in, out: a.print.out}
	}
	defer reader.Close()
	return a.repl(ctx, reader)
}

func (a *app) repl(ctx context.Context, reader lineReader) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.client.Run(ctx)

	a.secret = reader.PasswordPrompt
	defer func() { a.secret = nil }()

	a.print.note("adminauth shell. Type help for commands, exit to quit.")
	for {
		input, err := reader.Prompt(promptFor(a))
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				a.print.warn("reading input: %v", err)
			}
			return exitOK
		}

		fields := strings.Fields(input)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return exitOK
		case "help":
			fmt.Fprint(a.print.out, usage)
			continue
		case "shell":
			a.print.warn("already in the shell")
			continue
		}
		a.dispatch(ctx, fields, a.print.out)
		if ctx.Err() != nil {
			return exitOK
		}
	}
}

func promptFor(a *app) string {
	if lock := a.client.Lockout(); lock.Locked() {
		return warnStyle.Render(fmt.Sprintf("adminauth (locked %s)> ", lock.Remaining.Round(time.Second)))
	}
	if a.client.Session().Authenticated {
		return okStyle.Render("adminauth*> ")
	}
	return "adminauth> "
}
