package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// BarRenderer draws a two-line status and bar display on a TTY, or prints
// one timestamped line per event elsewhere.
type BarRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	start     time.Time
	isTTY     bool
	width     int
	lastEvent Event
	lines     int
}

// NewBarRenderer creates a renderer that writes to out. TTY mode and width
// are detected when out is a terminal.
func NewBarRenderer(out io.Writer) *BarRenderer {
	r := &BarRenderer{out: out, start: time.Now(), width: 80}
	if f, ok := out.(*os.File); ok {
		r.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if r.isTTY {
			if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
				r.width = w
			}
		}
	}
	return r
}

// Handle satisfies Callback. Safe for concurrent use since parallel
// expansion reports from several goroutines.
func (r *BarRenderer) Handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1.0
	}
	r.lastEvent = e

	if r.isTTY {
		r.renderTTY(e)
	} else {
		r.renderPlain(e)
	}
}

// Finish clears the bar and prints a one-line summary of the last event.
func (r *BarRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lastEvent
	if r.isTTY && r.lines > 0 {
		r.clearLines()
	}
	switch {
	case e.Error != nil:
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
	case e.Stage == StageComplete && e.OutputFile != "":
		fmt.Fprintf(r.out, "\n  %s\n  Saved to %s (%s)\n", e.Message, e.OutputFile, formatElapsed(e.Elapsed))
	case e.Stage == StageComplete:
		fmt.Fprintf(r.out, "\n  %s (%s)\n", e.Message, formatElapsed(e.Elapsed))
	}
}

func (r *BarRenderer) renderTTY(e Event) {
	if r.lines > 0 {
		r.clearLines()
	}
	bar := renderBar(e.Percent, r.barWidth())
	fmt.Fprintf(r.out, "  %s\n  %s %3d%%  %s", statusLine(e), bar, int(e.Percent*100), formatElapsed(e.Elapsed))
	r.lines = 2
}

func (r *BarRenderer) renderPlain(e Event) {
	fmt.Fprintf(r.out, "[%s] %s\n", formatElapsed(e.Elapsed), statusLine(e))
}

func statusLine(e Event) string {
	if e.UnitTotal > 0 {
		return fmt.Sprintf("%s [%d/%d]", e.Message, e.UnitNum, e.UnitTotal)
	}
	return e.Message
}

func (r *BarRenderer) clearLines() {
	for i := 0; i < r.lines; i++ {
		if i == 0 {
			fmt.Fprint(r.out, "\r\033[2K")
		} else {
			fmt.Fprint(r.out, "\033[A\033[2K")
		}
	}
	fmt.Fprint(r.out, "\r")
	r.lines = 0
}

// barWidth leaves room for the percent and elapsed columns.
func (r *BarRenderer) barWidth() int {
	return min(max(r.width-16, 20), 60)
}

func renderBar(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
