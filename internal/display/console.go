// Package display renders the 16x2 character display to a writer.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sweeney/reaction-timer/internal/logic"
)

// Display geometry.
const (
	Cols = 16
	Rows = 2
)

// Frame is one full display image.
type Frame [Rows]string

// String joins the rows with a newline.
func (f Frame) String() string {
	return strings.Join(f[:], "\n")
}

// Console implements logic.Display by writing each frame to w. When
// bordered, frames are drawn in a box the size of the real display;
// otherwise each frame is a single "display: a | b" line suitable for a
// log.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	bordered bool
	box      lipgloss.Style
	frame    Frame
}

var _ logic.Display = (*Console)(nil)

// NewConsole creates a console display writing to w.
func NewConsole(w io.Writer, bordered bool) *Console {
	box := lipgloss.NewRenderer(w).NewStyle().
		Border(lipgloss.RoundedBorder(), true).
		BorderForeground(lipgloss.Color("#C89A3A")).
		Width(Cols)
	return &Console{w: w, bordered: bordered, box: box}
}

// Frame returns the last rendered frame.
func (c *Console) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// ShowMenu shows the selected item with the next one below it.
func (c *Console) ShowMenu(items []logic.MenuItem, selected int) {
	if len(items) == 0 {
		c.render("", "")
		return
	}
	next := (selected + 1) % len(items)
	c.render("> "+items[selected].Label, "  "+items[next].Label)
}

// ShowCountdown shows the remaining countdown stage.
func (c *Console) ShowCountdown(stage int) {
	c.render("Get ready", fmt.Sprintf("%*d", Cols/2, stage))
}

// ShowLatency shows the round's latency and the running average.
func (c *Console) ShowLatency(current, average time.Duration) {
	c.render(
		fmt.Sprintf("Time %6d ms", current.Milliseconds()),
		fmt.Sprintf("Avg  %6d ms", average.Milliseconds()),
	)
}

// ShowSummary shows the block result.
func (c *Console) ShowSummary(s logic.Summary) {
	head := fmt.Sprintf("U%d %s", s.UserID, s.Mode)
	if s.Practice {
		head = "P " + head
	}
	if s.Mode == logic.ModeChoice {
		head += fmt.Sprintf(" %.0f%%", s.Accuracy*100)
	}
	c.render(head, fmt.Sprintf("B%d A%d ms", s.Best.Milliseconds(), s.Average.Milliseconds()))
}

// ShowError shows msg under an error banner.
func (c *Console) ShowError(msg string) {
	c.render("ERROR", msg)
}

func (c *Console) render(top, bottom string) {
	f := Frame{fit(top), fit(bottom)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = f
	if c.bordered {
		fmt.Fprintln(c.w, c.box.Render(f.String()))
		return
	}
	fmt.Fprintf(c.w, "display: %s | %s\n", f[0], f[1])
}

// fit truncates s to the display width and pads it with spaces.
func fit(s string) string {
	return runewidth.FillRight(runewidth.Truncate(s, Cols, ""), Cols)
}
