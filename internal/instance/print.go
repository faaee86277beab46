package instance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	stateStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	sigStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
	fieldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Render writes inst as a human-readable textual instance (§6): a per-state
// block listing every non-empty signature extent and field relation, plain
// when plain is true (piped output, --json, non-tty), styled otherwise.
func (inst *Instance) Render(plain bool) string {
	style := func(s lipgloss.Style, text string) string {
		if plain {
			return text
		}

		return s.Render(text)
	}

	var b strings.Builder

	for s, state := range inst.States {
		label := fmt.Sprintf("state %d", s)
		if inst.LoopState == s {
			label += " (loop target)"
		}

		fmt.Fprintln(&b, style(stateStyle, label))

		for _, name := range sortedKeys(state.Sigs) {
			rows := state.Sigs[name]
			if len(rows) == 0 {
				continue
			}

			fmt.Fprintf(&b, "  %s = %s\n", style(sigStyle, name), renderRows(rows))
		}

		for _, name := range sortedKeys(state.Fields) {
			rows := state.Fields[name]
			if len(rows) == 0 {
				continue
			}

			fmt.Fprintf(&b, "  %s = %s\n", style(fieldStyle, name), renderRows(rows))
		}

		if s == len(inst.States)-1 && inst.LoopState >= 0 {
			fmt.Fprintln(&b, style(dimStyle, fmt.Sprintf("  (loops back to state %d)", inst.LoopState)))
		}
	}

	return b.String()
}

// Heading renders a titled banner line (e.g. "instance for run Foo") ahead
// of Render's body.
func Heading(title string, plain bool) string {
	if plain {
		return title
	}

	return headingStyle.Render(title)
}

func renderRows(rows []Row) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		if len(r) == 1 {
			parts[i] = r[0]

			continue
		}

		parts[i] = "(" + strings.Join(r, "->") + ")"
	}

	return "{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
