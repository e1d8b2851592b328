package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

type textStyles struct {
	host    lipgloss.Style
	summary lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
	errored lipgloss.Style
	detail  lipgloss.Style
	total   lipgloss.Style
}

func newTextStyles(re *lipgloss.Renderer) textStyles {
	return textStyles{
		host:    re.NewStyle().Foreground(lipgloss.Color("#4D96FF")).Bold(true),
		summary: re.NewStyle().Foreground(lipgloss.Color("#888888")),
		pass:    re.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true),
		fail:    re.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		errored: re.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true),
		detail:  re.NewStyle().Foreground(lipgloss.Color("#A0AEC0")),
		total:   re.NewStyle().Bold(true),
	}
}

func (s textStyles) status(st domain.Status) lipgloss.Style {
	switch st {
	case domain.StatusPass:
		return s.pass
	case domain.StatusFail:
		return s.fail
	default:
		return s.errored
	}
}

// WriteText renders a terminal summary. Colors are dropped when w is not
// a terminal.
func WriteText(w io.Writer, r Report) error {
	st := newTextStyles(lipgloss.NewRenderer(w))

	width := 0
	for _, sr := range r {
		for _, o := range sr.Outcomes {
			width = max(width, len(o.Key))
		}
	}

	var b strings.Builder
	failing := 0
	for _, sr := range r {
		failing += sr.Failing
		fmt.Fprintf(&b, "%s  %s\n", st.host.Render(sr.Hostname), st.summary.Render(sr.Summary))
		for _, o := range sr.Outcomes {
			status := o.Result.Status
			fmt.Fprintf(&b, "  %-*s %s %s\n",
				width, o.Key,
				st.status(status).Render(fmt.Sprintf("%-5s", status)),
				st.detail.Render(o.TrimmedOutput()),
			)
		}
	}
	b.WriteString(st.total.Render(fmt.Sprintf("%d servers, %d not passing", len(r), failing)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
