// Package cmdutil provides shared utilities for rlockctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/marmos91/regionlock/internal/cli/output"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	Output     string
	NoColor    bool
	Verbose    bool
	ConfigPath string
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// IsVerbose returns whether verbose output is enabled.
func IsVerbose() bool {
	return Flags.Verbose
}

// PrintResource prints data in the specified format. For table format it
// uses tableRenderer; JSON/YAML marshal data directly.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(os.Stdout, !IsColorDisabled()).Success(msg)
}

// PrintErrorf prints a formatted error message to stderr.
func PrintErrorf(format string, args ...any) {
	output.NewPrinter(os.Stderr, !IsColorDisabled()).Error(fmt.Sprintf(format, args...))
}
