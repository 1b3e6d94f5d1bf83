package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	styleKey    = color.New(color.Bold, color.FgCyan)
	styleOK     = color.New(color.Bold, color.FgGreen)
	styleWarn   = color.New(color.Bold, color.FgYellow)
	styleErr    = color.New(color.Bold, color.FgRed)
	styleAccent = color.New(color.Bold, color.FgMagenta)
	styleDim    = color.New(color.Faint)
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const spinnerTick = 120 * time.Millisecond

// renderer styles human output. Both color and the progress spinner are off
// for JSON output, NO_COLOR, and anything that is not an interactive terminal.
type renderer struct {
	out         io.Writer
	interactive bool
	color       bool
}

func newRenderer(out io.Writer, asJSON bool) renderer {
	interactive := !asJSON && os.Getenv("NO_COLOR") == "" && isTerminal(out)
	return renderer{
		out:         out,
		interactive: interactive,
		color:       interactive && !color.NoColor,
	}
}

func isTerminal(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return false
	}
	switch strings.TrimSpace(os.Getenv("TERM")) {
	case "", "dumb":
		return false
	}
	return true
}

func (r renderer) paint(style *color.Color, value string) string {
	if !r.color || value == "" {
		return value
	}
	return style.Sprint(value)
}

func (r renderer) key(value string) string    { return r.paint(styleKey, value) }
func (r renderer) ok(value string) string     { return r.paint(styleOK, value) }
func (r renderer) warn(value string) string   { return r.paint(styleWarn, value) }
func (r renderer) err(value string) string    { return r.paint(styleErr, value) }
func (r renderer) accent(value string) string { return r.paint(styleAccent, value) }
func (r renderer) dim(value string) string    { return r.paint(styleDim, value) }

// coverage draws verified out of total as a fixed-width gauge.
func (r renderer) coverage(verified, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	filled := min(max(verified, 0)*width/total, width)
	gauge := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	if filled == width {
		return "[" + r.ok(gauge) + "]"
	}
	return "[" + r.warn(gauge) + "]"
}

// busy runs fn while animating label on an interactive terminal. fn owns
// cancellation through ctx, so busy waits for it to return.
func (r renderer) busy(ctx context.Context, label string, fn func() error) error {
	if !r.interactive {
		return fn()
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()

	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	label = r.accent(label)
	for frame := 0; ; {
		select {
		case err := <-done:
			fmt.Fprint(r.out, "\r\x1b[2K")
			return err
		case <-ticker.C:
			fmt.Fprintf(r.out, "\r%s %s", spinnerFrames[frame%len(spinnerFrames)], label)
			frame++
		case <-ctx.Done():
			ctx = context.Background()
		}
	}
}
