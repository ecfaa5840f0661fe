package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/daviddao/tlview/internal/termview"
	"github.com/daviddao/tlview/pkg/model"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	hoverStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#89B4FA"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	lines := []string{m.renderTitleBar()}
	lines = append(lines, strings.Split(m.canvas.Render(), "\n")...)
	lines = append(lines, fitLines(m.renderDetail(), paneRows)...)

	switch {
	case m.prompting:
		lines = append(lines, m.prompt.View())
	case m.showHelp:
		lines = append(lines, m.help.View(keys))
	default:
		lines = append(lines, m.renderStatusBar())
	}

	// Truncate each line to terminal width so content doesn't wrap
	// on resize. Uses ANSI-aware width measurement.
	return truncateLines(strings.Join(lines, "\n"), m.width)
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("tlv")
	vis := m.tl.Visible()
	stats := dimStyle.Render(fmt.Sprintf(
		"%d bands | %d entries | zoom %d | %s – %s",
		len(m.snap.Bands),
		m.snap.TotalEntries,
		m.tl.Zoom(),
		vis.Start.Format("2006-01-02 15:04"),
		vis.Stop.Format("2006-01-02 15:04"),
	))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-1))
	return title + gap + stats
}

// renderDetail shows the clicked entry, or the instant under the pointer.
func (m uiModel) renderDetail() string {
	if e := m.st.selected; e != nil {
		return termview.Tooltip(entryName(*e), entryDetail(m.st.selectedBand, *e), min(m.width, 72))
	}
	if !m.st.hoverDate.IsZero() {
		return hoverStyle.Render(" " + m.st.hoverDate.Format("Mon 2006-01-02 15:04:05"))
	}
	return ""
}

func entryDetail(band string, e model.Entry) string {
	var b strings.Builder
	b.WriteString(band + "  ")
	if e.IsMilestone() {
		b.WriteString(e.Start.Format(time.DateTime))
	} else {
		fmt.Fprintf(&b, "%s → %s (%s)", e.Start.Format(time.DateTime), e.End().Format(time.DateTime),
			shortDuration(e.End().Sub(e.Start)))
	}
	if e.Tooltip != "" {
		b.WriteString("\n" + e.Tooltip)
	}
	return b.String()
}

func (m uiModel) renderStatusBar() string {
	left := " ? help"
	if m.st.status != "" {
		left = " " + m.st.status
	}
	if m.tl.Busy() {
		left += " (loading)"
	}
	ago := m.clock().Sub(m.lastRefresh).Truncate(time.Second)
	right := fmt.Sprintf("refreshed %s ago ", ago)
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-len(right)))
	bar := statusBarStyle.Render(left + gap + right)
	if strings.HasPrefix(m.st.status, "render failed") || strings.HasPrefix(m.st.status, "reload failed") {
		bar = errorStyle.Render(left) + statusBarStyle.Render(gap+right)
	}
	return bar
}

// fitLines pads or cuts s to exactly n lines.
func fitLines(s string, n int) []string {
	lines := strings.Split(s, "\n")
	if s == "" {
		lines = nil
	}
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

func shortDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
}
