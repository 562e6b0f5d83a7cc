package output

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/adjust/internal/domain"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// TextWriter renders results for humans.
type TextWriter struct {
	w io.Writer
}

// NewTextWriter creates a writer on w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Heading writes a styled section title.
func (t *TextWriter) Heading(title string) {
	fmt.Fprintln(t.w, headingStyle.Render(title))
}

// Field writes an aligned label/value line.
func (t *TextWriter) Field(label string, value any) {
	fmt.Fprintf(t.w, "  %s %v\n", labelStyle.Render(fmt.Sprintf("%-18s", label+":")), value)
}

// Error writes an error line with an optional hint.
func (t *TextWriter) Error(code, message, hint string) {
	fmt.Fprintf(t.w, "%s %s", errorStyle.Render("Error ["+code+"]:"), message)
	if hint != "" {
		fmt.Fprintf(t.w, " (hint: %s)", hint)
	}
	fmt.Fprintln(t.w)
}

// WriteState renders the session state. Times are shown relative to now.
func (t *TextWriter) WriteState(s *domain.ActivityState, a *domain.Attribution, now time.Time) {
	t.Heading("Activity State")
	if s == nil {
		fmt.Fprintln(t.w, "  No session has been tracked yet.")
		return
	}
	t.Field("uuid", s.UUID)
	t.Field("enabled", s.Enabled)
	t.Field("sessions", humanize.Comma(int64(s.SessionCount)))
	t.Field("subsessions", humanize.Comma(int64(s.SubsessionCount)))
	t.Field("events", humanize.Comma(int64(s.EventCount)))
	t.Field("session length", s.SessionLength.Round(time.Second))
	t.Field("time spent", s.TimeSpent.Round(time.Second))
	if s.LastInterval != nil {
		t.Field("last interval", s.LastInterval.Round(time.Second))
	}
	t.Field("session started", relative(s.CreatedAt, now))
	t.Field("last activity", relative(s.LastActivity, now))

	if a != nil {
		fmt.Fprintln(t.w)
		t.Heading("Attribution")
		t.Field("tracker", a.TrackerName)
		t.Field("network", a.Network)
		t.Field("campaign", a.Campaign)
	}
}

// WritePackages renders the queue as a table, head first.
func (t *TextWriter) WritePackages(pkgs []*domain.ActivityPackage, now time.Time) error {
	t.Heading(fmt.Sprintf("Package Queue (%d)", len(pkgs)))
	if len(pkgs) == 0 {
		fmt.Fprintln(t.w, "  Queue is empty.")
		return nil
	}

	table := tablewriter.NewWriter(t.w)
	table.Header("#", "Kind", "Path", "Detail", "Created", "ID")
	for i, p := range pkgs {
		created := ""
		if p.CreatedAt > 0 {
			created = relative(p.BuiltAt(), now)
		}
		row := []string{fmt.Sprint(i), string(p.Kind), p.Path, p.Suffix, created, p.ID}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteResult renders the summary of a tracking command.
func (t *TextWriter) WriteResult(command string, pending int, offline bool) {
	switch {
	case offline:
		fmt.Fprintf(t.w, "%s queued; offline, %s waiting\n", command, packages(pending))
	case pending == 0:
		fmt.Fprintf(t.w, "%s delivered; queue is empty\n", command)
	default:
		fmt.Fprintf(t.w, "%s queued; %s still waiting for delivery\n", command, packages(pending))
	}
}

func packages(n int) string {
	if n == 1 {
		return "1 package"
	}
	return humanize.Comma(int64(n)) + " packages"
}

func relative(at, now time.Time) string {
	if at.IsZero() {
		return "never"
	}
	return humanize.RelTime(at, now, "ago", "from now")
}
