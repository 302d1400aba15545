// Package progress reports batch progress on the terminal, either as one
// line per email or as a progress bar.
package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/jmylchreest/sigstrip/pkg/pipeline"
	"github.com/jmylchreest/sigstrip/pkg/recorder"
)

// Console prints a line per email.
type Console struct {
	w io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Start(total int) {
	fmt.Fprintf(c.w, "Found %d email files to process\n", total)
}

func (c *Console) FileStarted(index, total int, name string) {
	fmt.Fprintf(c.w, "\nProcessing email %d/%d: %s\n", index, total, name)
}

func (c *Console) FileDone(rec recorder.Record, err error) {
	if err == nil {
		fmt.Fprintf(c.w, "Email %s added to CSV\n", rec.EmailID)
		return
	}
	fmt.Fprintf(c.w, "Email %s: %s\n", rec.EmailID, rec.Status)
}

func (c *Console) Finish() {}

// Bar renders a progress bar whose description shows the current file.
type Bar struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar

	failed int
}

// NewBar creates a Bar writing to w.
func NewBar(w io.Writer) *Bar {
	return &Bar{w: w}
}

func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription("Cleaning emails"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func (b *Bar) FileStarted(_, _ int, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		b.bar.Describe(truncate(name, 40))
	}
}

func (b *Bar) FileDone(_ recorder.Record, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && pipeline.KindOf(err) != pipeline.KindNoContent {
		b.failed++
	}
	if b.bar != nil {
		_ = b.bar.Add(1)
	}
}

func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// Failed returns the number of emails that ended in a file or model error.
func (b *Bar) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

var (
	_ pipeline.Reporter = (*Console)(nil)
	_ pipeline.Reporter = (*Bar)(nil)
)
