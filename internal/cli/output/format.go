// Package output renders rlockctl command results in the three shapes
// an operator consumes them: a human-readable table of lock records or
// config keys, JSON for scripts, and YAML for config-style dumps.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format names an output rendering mode, selected by the --output flag.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps a --output flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, or yaml)", s)
	}
}

func (f Format) String() string { return string(f) }

// Printer writes the status lines that accompany table output, such as
// "acquired WRITE lock on [0,100)". JSON and YAML modes suppress them
// so a script parsing the payload never sees stray prose.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter returns a Printer writing to w, with ANSI colors when
// color is true. It does not check whether w is a terminal.
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

// Success prints a confirmation line for a completed lock operation.
func (p *Printer) Success(msg string) {
	if p.color {
		fmt.Fprintf(p.w, "\x1b[32m✓\x1b[0m %s\n", msg)
		return
	}
	fmt.Fprintf(p.w, "✓ %s\n", msg)
}

// Error prints a failure line, e.g. a WouldBlock conflict report.
func (p *Printer) Error(msg string) {
	if p.color {
		fmt.Fprintf(p.w, "\x1b[31m✗\x1b[0m %s\n", msg)
		return
	}
	fmt.Fprintf(p.w, "✗ %s\n", msg)
}
