package services

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/dmitrijs2005/drawkeeper/internal/client/models"
)

const clearLine = "\r\033[K"

// LineReporter prints watch progress. On a terminal the non-terminal drawings
// share one line that is redrawn in place; otherwise each change is printed
// once on its own line.
type LineReporter struct {
	mu     sync.Mutex
	out    io.Writer
	tty    bool
	active []string
	last   map[string]string
}

var _ Reporter = (*LineReporter)(nil)

func NewLineReporter(out io.Writer) *LineReporter {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &LineReporter{out: out, tty: tty, last: map[string]string{}}
}

// FormatStatus renders a status the way drawctl prints it.
func FormatStatus(id string, st *models.Status) string {
	s := fmt.Sprintf("%s %s %d%%", id, st.State, st.ProgressPercent)
	msg := st.Message
	if len(st.Messages) > 0 {
		msg = strings.Join(st.Messages, "; ")
	}
	if msg != "" && st.State == models.StateFailed {
		s += ": " + msg
	}
	return s
}

func (r *LineReporter) Update(id string, st *models.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := FormatStatus(id, st)
	changed := r.last[id] != line
	r.last[id] = line

	if !r.tty {
		if changed {
			fmt.Fprintln(r.out, line)
		}
		return
	}

	if models.Terminal(st.State) {
		r.active = slices.DeleteFunc(r.active, func(s string) bool { return s == id })
		fmt.Fprint(r.out, clearLine+line+"\n")
	} else if !slices.Contains(r.active, id) {
		r.active = append(r.active, id)
	}
	r.redraw()
}

func (r *LineReporter) Error(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tty {
		fmt.Fprintf(r.out, "%s: %v\n", id, err)
		return
	}
	fmt.Fprintf(r.out, "%s%s: %v\n", clearLine, id, err)
	r.redraw()
}

func (r *LineReporter) redraw() {
	if len(r.active) == 0 {
		return
	}
	parts := make([]string, 0, len(r.active))
	for _, id := range r.active {
		parts = append(parts, r.last[id])
	}
	fmt.Fprint(r.out, clearLine+strings.Join(parts, " | "))
}

// Finish terminates a pending in-place line.
func (r *LineReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty && len(r.active) > 0 {
		fmt.Fprintln(r.out)
		r.active = nil
	}
}
