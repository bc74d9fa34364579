package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"JSON", FormatJSON, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := ParseFormat(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) = %v, want error", c.in, got)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("ParseFormat(%q) = %v, %v, want %v", c.in, got, err, c.want)
		}
	}
}

func TestPrinterSuccessWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Success("acquired READ lock on [0,100)")
	got := buf.String()
	if got != "✓ acquired READ lock on [0,100)\n" {
		t.Errorf("Success output = %q", got)
	}
	if strings.Contains(got, "\x1b[") {
		t.Error("no ANSI sequences expected when color is off")
	}
}

func TestPrinterErrorWithColor(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Error("region conflicts with an existing lock")
	got := buf.String()
	if !strings.Contains(got, "\x1b[31m") || !strings.Contains(got, "region conflicts") {
		t.Errorf("Error output = %q, want red marker and message", got)
	}
}
