package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrEthical07/adminauth"
	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("82")).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

type printer struct {
	out  io.Writer
	json bool
}

type jsonResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func (p printer) result(okMessage string, res adminauth.Result) {
	if p.json {
		p.encode(jsonResult{Success: res.Success, Message: okMessage, Error: res.Error, Payload: res.Payload})
		return
	}
	if res.Success {
		fmt.Fprintf(p.out, "%s %s\n", okStyle.Render("[OK]"), okMessage)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", errorStyle.Render("[ERROR]"), res.Error)
}

func (p printer) encode(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(p.out, "%s %v\n", errorStyle.Render("[ERROR]"), err)
		return
	}
	fmt.Fprintln(p.out, string(data))
}

func (p printer) field(name string, value any) {
	fmt.Fprintf(p.out, "  %-16s %v\n", name+":", value)
}

func (p printer) warn(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", warnStyle.Render("[WARN]"), fmt.Sprintf(format, args...))
}

func (p printer) note(format string, args ...any) {
	fmt.Fprintln(p.out, dimStyle.Render(fmt.Sprintf(format, args...)))
}
