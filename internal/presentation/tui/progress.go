package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
)

// Progress prints workflow progress messages, colored by kind.
type Progress struct {
	out     *termenv.Output
	mu      sync.Mutex
	started time.Time
	now     func() time.Time
}

// NewProgress writes to w. Colors are dropped when w is not a terminal.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		out: termenv.NewOutput(w),
		now: time.Now,
	}
}

// Report prints one progress message. It satisfies domain.ProgressFunc.
func (p *Progress) Report(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.IsZero() {
		p.started = p.now()
	}
	elapsed := p.now().Sub(p.started).Truncate(time.Second)

	marker, color := "›", "#60a5fa"
	switch {
	case strings.HasPrefix(message, "Error:"):
		marker, color = "✗", "#f87171"
	case strings.HasPrefix(message, "Workflow completed"):
		marker, color = "✓", "#34d399"
	}

	styled := p.out.String(fmt.Sprintf("%s %s", marker, message)).Foreground(p.out.Color(color))
	stamp := p.out.String(fmt.Sprintf("[%6s]", elapsed)).Faint()
	fmt.Fprintf(p.out, "%s %s\n", stamp, styled)
}
