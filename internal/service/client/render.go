package client

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// Renderer formats statuses and sensors for humans.
type Renderer struct {
	// enabled turns styling on; plain text otherwise.
	enabled bool

	alarm   lipgloss.Style
	pending lipgloss.Style
	calm    lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
}

// NewRenderer styles output written to w when w is a terminal and NO_COLOR is unset.
func NewRenderer(w io.Writer) *Renderer {
	f, ok := w.(*os.File)
	enabled := ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""

	if !enabled {
		return NewPlainRenderer()
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI256)

	return &Renderer{
		enabled: true,
		alarm:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		pending: r.NewStyle().Foreground(lipgloss.Color("11")),
		calm:    r.NewStyle().Foreground(lipgloss.Color("10")),
		header:  r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// NewPlainRenderer never styles.
func NewPlainRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) render(style lipgloss.Style, text string) string {
	if !r.enabled {
		return text
	}

	return style.Render(text)
}

// AlarmStatus renders status with its severity color.
func (r *Renderer) AlarmStatus(status domain.AlarmStatus) string {
	switch status {
	case domain.Alarm:
		return r.render(r.alarm, status.String())
	case domain.PendingAlarm:
		return r.render(r.pending, status.String())
	default:
		return r.render(r.calm, status.String())
	}
}

// Snapshot renders the whole status.
func (r *Renderer) Snapshot(snapshot *wire.Snapshot) string {
	if snapshot == nil {
		return "<nil status>"
	}

	cat := "no"
	if snapshot.CatDetected {
		cat = "yes"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", r.render(r.header, "alarm: "), r.AlarmStatus(snapshot.AlarmStatus))
	fmt.Fprintf(&b, "%s %s\n", r.render(r.header, "arming:"), snapshot.ArmingStatus)
	fmt.Fprintf(&b, "%s %s\n", r.render(r.header, "cat:   "), cat)
	b.WriteString(r.render(r.header, "sensors:"))
	b.WriteString("\n")
	b.WriteString(r.Sensors(snapshot.Sensors))

	return strings.TrimRight(b.String(), "\n")
}

// Sensors renders one sensor per line with aligned columns.
func (r *Renderer) Sensors(sensors []domain.Sensor) string {
	if len(sensors) == 0 {
		return r.render(r.muted, "  (none)")
	}

	width := 0
	for _, s := range sensors {
		width = max(width, len(s.Name))
	}

	var b strings.Builder

	for _, s := range sensors {
		state := r.render(r.muted, "inactive")
		if s.Active {
			state = r.render(r.pending, "active")
		}

		fmt.Fprintf(&b, "  %-*s  %-6s  %s\n", width, s.Name, s.Type, state)
	}

	return strings.TrimRight(b.String(), "\n")
}

// History renders one alarm write per line, newest first, with UTC times.
func (r *Renderer) History(history []domain.AlarmChange) string {
	if len(history) == 0 {
		return r.render(r.muted, "  (no alarm changes)")
	}

	var b strings.Builder

	for _, change := range history {
		at := change.ChangedAt.UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "  %s  %s\n", r.render(r.muted, at), r.AlarmStatus(change.Status))
	}

	return strings.TrimRight(b.String(), "\n")
}
