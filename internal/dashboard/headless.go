// Package dashboard renders the event stream + display-state accumulator
// for a human operator: a line-oriented headless renderer (grounded on the
// teacher's interfaces/tui.TUI ANSI renderer) and a full bubbletea TUI.
package dashboard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ouro-run/ouro/internal/event"
)

// ANSI styling, carried over from the teacher's plain-ANSI renderer.
const (
	reset    = "\033[0m"
	bold     = "\033[1m"
	dim      = "\033[2m"
	fgCyan   = "\033[36m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgRed    = "\033[31m"
	fgGray   = "\033[90m"
)

// Headless drains an event channel and writes a line-oriented rendering to
// out, for --headless mode where no terminal UI is attached. Model text and
// harness event lines all go to out; none are split onto stderr.
type Headless struct {
	out *os.File
}

func NewHeadless(out *os.File) *Headless {
	return &Headless{out: out}
}

// Run drains ch until it closes, printing one rendering per event. The
// caller runs this in its own goroutine alongside the turn loop.
func (h *Headless) Run(ch <-chan event.Event) {
	for e := range ch {
		h.render(e)
	}
}

func (h *Headless) render(e event.Event) {
	ts := e.Timestamp.Format(time.TimeOnly)
	switch e.Kind {
	case event.KindSessionStarted:
		fmt.Fprintf(h.out, "%s%s[%s] session started%s\n", bold, fgCyan, ts, reset)

	case event.KindStateChanged:
		switch e.State {
		case event.StateSleeping:
			fmt.Fprintf(h.out, "%s[%s] sleeping: %s%s\n", dim, ts, e.SleepDisplay, reset)
		default:
			fmt.Fprintf(h.out, "%s[%s] state -> %s%s\n", dim, ts, e.State, reset)
		}

	case event.KindThoughtText:
		fmt.Fprint(h.out, e.Text)

	case event.KindToolCallStarted:
		fmt.Fprintf(h.out, "\n%s%s[%s] tool %s(%s)%s\n", bold, fgYellow, ts, e.FnName, e.ArgSummary, reset)

	case event.KindToolCallDone:
		icon, color := "ok", fgGreen
		if !e.OK {
			icon, color = "fail", fgRed
		}
		fmt.Fprintf(h.out, "%s[%s] %s %s: %s%s\n", color, ts, icon, e.CallID, truncateLine(e.Summary), reset)

	case event.KindContextPressure:
		fmt.Fprintf(h.out, "%s[%s] context pressure %s (%.0f%%)%s\n", fgYellow, ts, e.Level, e.Pct, reset)

	case event.KindCountersUpdated:
		fmt.Fprintf(h.out, "%s[%s] turn=%d tools=%d%s\n", fgGray, ts, e.Turn, e.Tools, reset)

	case event.KindSessionRestarted:
		fmt.Fprintf(h.out, "%s%s[%s] session restarted #%d: %s%s\n", bold, fgCyan, ts, e.N, e.Reason, reset)

	case event.KindDiscovery:
		fmt.Fprintf(h.out, "%s%s[%s] discovery: %s -- %s%s\n", bold, fgGreen, ts, e.Title, e.Description, reset)

	case event.KindError:
		fmt.Fprintf(h.out, "%s%s[%s] error: %s%s\n", bold, fgRed, ts, e.Text, reset)
	}
}

func truncateLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:197] + "..."
	}
	return s
}
