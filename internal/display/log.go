// Package display renders CLI output: status lines, quotes, book tables and
// the server banner.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Stdout and Stderr are the destinations for CLI output.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	boldStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	stepStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	infoStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Faint(true)
	quoteStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FFFFFF"))
	authorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(18)
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Step prints a pipeline step like "  [1/5] Extracting pages 1-20".
func Step(step, total int, msg string) {
	fmt.Fprintf(Stdout, "  %s %s\n", stepStyle.Render(fmt.Sprintf("[%d/%d]", step, total)), msg)
}

// StepDetail prints an indented detail line under a step.
func StepDetail(msg string) {
	fmt.Fprintf(Stdout, "        %s\n", dimStyle.Render(msg))
}

// StepWarn prints a warning detail under a step.
func StepWarn(msg string) {
	fmt.Fprintf(Stdout, "        %s\n", warnStyle.Render("⚠ "+msg))
}

// Info prints a general info message.
func Info(msg string) {
	fmt.Fprintf(Stdout, "  %s %s\n", infoStyle.Render("ℹ"), msg)
}

// Success prints a green success message.
func Success(msg string) {
	fmt.Fprintf(Stdout, "  %s %s\n", successStyle.Render("✓"), msg)
}

// Warn prints a yellow warning message.
func Warn(msg string) {
	fmt.Fprintf(Stdout, "  %s %s\n", warnStyle.Bold(true).Render("⚠"), warnStyle.Render(msg))
}

// ErrorMsg prints a red error message to Stderr.
func ErrorMsg(msg string) {
	fmt.Fprintf(Stderr, "  %s %s\n", errorStyle.Bold(true).Render("✗"), errorStyle.Render(msg))
}

// Header prints a section header line.
func Header(msg string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintf(Stdout, "  %s\n", headerStyle.Render(msg))
	fmt.Fprintf(Stdout, "  %s\n", ruleStyle.Render(rule))
}

// KeyValue prints a labeled value.
func KeyValue(key string, value any) {
	fmt.Fprintf(Stdout, "    %s  %v\n", keyStyle.Render(key), value)
}

// Quote prints a quote with its attribution.
func Quote(text, author, book string) {
	fmt.Fprintln(Stdout)
	fmt.Fprintf(Stdout, "  %s\n", quoteStyle.Render("“"+text+"”"))
	attribution := "— " + author
	if book != "" {
		attribution += ", " + book
	}
	fmt.Fprintf(Stdout, "    %s\n\n", authorStyle.Render(attribution))
}

// Status renders an enabled flag as on or off.
func Status(enabled bool) string {
	if enabled {
		return successStyle.Render("on")
	}
	return dimStyle.Render("off")
}

// Table prints rows under a header with padded columns.
func Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			pad := widths[i] - lipgloss.Width(c)
			if style != nil {
				c = style.Render(c)
			}
			parts[i] = c + strings.Repeat(" ", pad)
		}
		return strings.TrimRight("    "+strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(Stdout, line(headers, &boldStyle))
	for _, row := range rows {
		fmt.Fprintln(Stdout, line(row, nil))
	}
}

// LogRequest prints a colorized HTTP request log line.
func LogRequest(method, path string, status int, duration time.Duration, remote string) {
	fmt.Fprintf(Stdout, "  %s %-35s %s %s %s\n",
		lipgloss.NewStyle().Bold(true).Foreground(colorForMethod(method)).Width(7).Render(method),
		path,
		lipgloss.NewStyle().Bold(true).Foreground(colorForStatus(status)).Render(fmt.Sprintf("%d", status)),
		dimStyle.Render(formatDuration(duration)),
		dimStyle.Render(remote),
	)
}

func colorForMethod(method string) lipgloss.Color {
	switch method {
	case "GET":
		return lipgloss.Color("12")
	case "POST":
		return lipgloss.Color("10")
	case "PUT", "PATCH":
		return lipgloss.Color("11")
	case "DELETE":
		return lipgloss.Color("9")
	default:
		return lipgloss.Color("7")
	}
}

func colorForStatus(code int) lipgloss.Color {
	switch {
	case code >= 500:
		return lipgloss.Color("9")
	case code >= 400:
		return lipgloss.Color("11")
	case code >= 300:
		return lipgloss.Color("14")
	case code >= 200:
		return lipgloss.Color("10")
	default:
		return lipgloss.Color("7")
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dμs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}
