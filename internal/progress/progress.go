// Package progress renders run progress for interactive terminals.
// Non-interactive invocations (pipes, CI) get a silent sink so structured
// logs remain the only output stream.
package progress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Sink receives fire-and-forget progress reports from the pipeline.
type Sink interface {
	// Report announces the current activity and overall completion
	// fraction in [0, 1].
	Report(message string, fraction float64)
	// Close releases terminal state. Safe to call multiple times.
	Close()
}

// New returns a terminal progress bar when w is an interactive terminal,
// otherwise a silent sink.
func New(w io.Writer) Sink {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return &Bar{writer: w}
	}
	return Silent{}
}

// Bar renders progress as a single terminal bar scaled to 100 ticks.
type Bar struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

func (b *Bar) Report(message string, fraction float64) {
	if b.bar == nil {
		b.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(b.writer),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	b.bar.Describe(message)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	_ = b.bar.Set(int(fraction * 100))
}

func (b *Bar) Close() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
	b.bar = nil
}

// Silent discards all progress reports.
type Silent struct{}

func (Silent) Report(string, float64) {}
func (Silent) Close()                 {}

// Report is one captured progress event.
type Report struct {
	Message  string
	Fraction float64
}

// Recorder captures reports for assertions in tests.
type Recorder struct {
	Reports []Report
	Closed  bool
}

func (r *Recorder) Report(message string, fraction float64) {
	r.Reports = append(r.Reports, Report{Message: message, Fraction: fraction})
}

func (r *Recorder) Close() { r.Closed = true }
