// Package output provides consistent CLI output formatting for
// folder-observer commands.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/ickyicky/folder-observer/internal/category"
	"github.com/ickyicky/folder-observer/internal/dispatch"
	"github.com/ickyicky/folder-observer/internal/journal"
)

// Palette, in 256-color codes.
const (
	ColorGreen  = "42"
	ColorYellow = "220"
	ColorRed    = "196"
	ColorGray   = "245"
	ColorAccent = "111"
)

type styles struct {
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
	accent  lipgloss.Style
	header  lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		accent:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		header:  lipgloss.NewStyle().Bold(true),
	}
}

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	color  bool
	styles styles
}

// New creates a Writer that colors output only on a terminal without NO_COLOR.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTTY(out) && !DetectNoColor())
}

// NewWithColor creates a Writer with color explicitly on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{out: out, color: color, styles: newStyles(color)}
}

// IsTTY checks if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Status prints a message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "  %s\n", msg)
	}
}

// Statusf prints a formatted message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.success.Render("✔"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.failure.Render("✘"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Result prints one line for a handled event.
func (w *Writer) Result(r dispatch.Result) {
	name := filepath.Base(r.Event.Path)

	switch r.Status {
	case dispatch.StatusRelocated:
		w.Successf("%s → %s", name, w.styles.accent.Render(r.Resolution.Category)+w.fallbackNote(r.Resolution))
	case dispatch.StatusLinkFailed:
		w.Warningf("%s → %s (link failed: %v)", name, w.styles.accent.Render(r.Resolution.Category), r.Err)
	case dispatch.StatusRelocateFailed:
		w.Errorf("%s: %v", name, r.Err)
	case dispatch.StatusSkippedExcluded:
		w.Status(w.styles.dim.Render("·"), w.styles.dim.Render(fmt.Sprintf("%s excluded by %s", name, r.Pattern)))
	default:
		w.Status(w.styles.dim.Render("·"), w.styles.dim.Render(fmt.Sprintf("%s %s", name, r.Status)))
	}
}

func (w *Writer) fallbackNote(res category.Resolution) string {
	if !res.FellBack() {
		return ""
	}
	return w.styles.dim.Render(" (fallback)")
}

// Resolution prints "input  Category  (source)" for the resolve command.
func (w *Writer) Resolution(input string, res category.Resolution) {
	line := fmt.Sprintf("%-24s %s  %s", input, w.styles.accent.Render(res.Category), w.styles.dim.Render("("+string(res.Source)+")"))
	if res.Err != nil {
		line += " " + w.styles.warning.Render(res.Err.Error())
	}
	_, _ = fmt.Fprintln(w.out, line)
}

// Summary prints the non-zero counters of a run.
func (w *Writer) Summary(s dispatch.Stats) {
	parts := []string{fmt.Sprintf("%d moved", s.Relocated)}
	extra := []struct {
		n     uint64
		label string
	}{
		{s.RelocateFailed, "failed"},
		{s.LinkFailed, "link failed"},
		{s.Excluded, "excluded"},
		{s.NotRegular, "not regular"},
		{s.InFlight, "in flight"},
		{s.Cancelled, "cancelled"},
	}
	for _, e := range extra {
		if e.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", e.n, e.label))
		}
	}

	msg := strings.Join(parts, ", ")
	if s.RelocateFailed > 0 {
		w.Warning(msg)
		return
	}
	w.Success(msg)
}

// History prints journal entries as a table, newest first as given.
func (w *Writer) History(entries []journal.Entry) {
	if len(entries) == 0 {
		w.Status("", w.styles.dim.Render("no relocations recorded"))
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "WHEN", "STATUS", "CATEGORY", "FILE", "DETAIL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return w.styles.header.PaddingRight(1)
			}
			return lipgloss.NewStyle().PaddingRight(1)
		})

	for _, e := range entries {
		detail := e.Destination
		if e.Error != "" {
			detail = e.Error
		}
		status := e.Status
		if e.Retried {
			status += " (retried)"
		}
		t.Row(
			fmt.Sprint(e.ID),
			humanize.Time(e.CreatedAt),
			w.statusStyle(e).Render(status),
			e.Category,
			e.Source,
			detail,
		)
	}
	_, _ = fmt.Fprintln(w.out, t.Render())
}

func (w *Writer) statusStyle(e journal.Entry) lipgloss.Style {
	switch {
	case e.Failed && !e.Retried:
		return w.styles.failure
	case e.Error != "":
		return w.styles.warning
	default:
		return w.styles.success
	}
}

// Counts prints per-status totals in a stable order.
func (w *Writer) Counts(counts map[string]int) {
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = fmt.Sprintf("%s=%s", s, humanize.Comma(int64(counts[s])))
	}
	w.Status("", w.styles.dim.Render(strings.Join(parts, " ")))
}
