package main

import (
	"encoding/json"
	"strings"

	laminar "github.com/AlchemicalChef/MacAlloy-sub001"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// formatDiagnostics renders every diagnostic in `LINE:COL: severity: [CODE]
// message` order (§6), coloring the severity word when plain is false.
func formatDiagnostics(diags *laminar.Diagnostics, plain bool) string {
	var b strings.Builder

	for _, d := range diags.All() {
		if plain {
			b.WriteString(d.String())
			b.WriteByte('\n')

			continue
		}

		style := errorStyle
		if d.Severity == laminar.SeverityWarning {
			style = warnStyle
		}

		b.WriteString(style.Render(d.String()))
		b.WriteByte('\n')
	}

	return b.String()
}

// jsonDiagnostic is the wire shape for `--json`, generalizing the
// teacher's schema-dump idiom of marshaling a flattened struct instead of
// the internal Diagnostic type directly.
type jsonDiagnostic struct {
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// diagnosticsJSON marshals diags as a JSON array for tool consumption.
func diagnosticsJSON(diags *laminar.Diagnostics) (string, error) {
	out := make([]jsonDiagnostic, 0, len(diags.All()))
	for _, d := range diags.All() {
		out = append(out, jsonDiagnostic{
			Line:     d.Span.Start.Line,
			Column:   d.Span.Start.Column,
			Severity: d.Severity.String(),
			Code:     d.Code,
			Message:  d.Message,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	return string(data), nil
}
