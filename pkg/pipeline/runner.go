// Package pipeline runs the batch: discover .eml files, extract and clean
// each one in order, and append one comparison record per file.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/jmylchreest/sigstrip/internal/logger"
	"github.com/jmylchreest/sigstrip/pkg/recorder"
)

// Reporter receives progress notifications from Run.
type Reporter interface {
	Start(total int)
	FileStarted(index, total int, name string)
	FileDone(rec recorder.Record, err error)
	Finish()
}

// RecordWriter receives structured documents, such as training examples.
type RecordWriter interface {
	Write(data any) error
}

// TrainingExample is one input/output pair exported for successful records.
type TrainingExample struct {
	EmailID string `json:"email_id"`
	Input   string `json:"input"`
	Output  string `json:"output"`
}

// Config holds what Run needs besides the processor.
type Config struct {
	InputFolder string
	OutputPath  string // empty derives recorder.DefaultPath
}

// Runner drives a batch.
type Runner struct {
	cfg       Config
	processor *Processor
	reporter  Reporter
	training  RecordWriter
	usage     *UsageTracker
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(rn *Runner) { rn.reporter = r }
}

// WithTrainingData exports every successful record to w.
func WithTrainingData(w RecordWriter) Option {
	return func(rn *Runner) { rn.training = w }
}

// WithUsage copies the tracker's totals into the summary.
func WithUsage(u *UsageTracker) Option {
	return func(rn *Runner) { rn.usage = u }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(rn *Runner) { rn.now = now }
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, p *Processor, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, processor: p, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes the batch. Failing to create the output file is fatal. An
// empty input folder is not an error: the file keeps only its header.
// Cancellation is honoured between files; the partial summary is returned
// with the context error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{StartedAt: r.now()}
	defer func() {
		sum.FinishedAt = r.now()
		sum.Duration = sum.FinishedAt.Sub(sum.StartedAt)
		if r.usage != nil {
			sum.Usage = r.usage.Totals()
		}
	}()

	rec, err := recorder.Create(r.cfg.OutputPath, recorder.WithClock(r.now))
	if err != nil {
		return sum, err
	}
	sum.OutputPath = rec.Path()

	files, err := Discover(r.cfg.InputFolder)
	if errors.Is(err, ErrNoFiles) {
		logger.Info("no .eml files found", "folder", r.cfg.InputFolder)
		return sum, nil
	}
	if err != nil {
		return sum, err
	}

	sum.Files = len(files)
	logger.Info("found email files to process", "count", len(files), "folder", r.cfg.InputFolder)
	if r.reporter != nil {
		r.reporter.Start(len(files))
		defer r.reporter.Finish()
	}

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "processed", sum.Processed, "remaining", len(files)-i)
			return sum, err
		}
		r.processOne(ctx, rec, sum, i+1, len(files), path)
	}
	return sum, nil
}

func (r *Runner) processOne(ctx context.Context, rec *recorder.CSV, sum *Summary, index, total int, path string) {
	name := filepath.Base(path)
	if r.reporter != nil {
		r.reporter.FileStarted(index, total, name)
	}

	start := time.Now()
	record, err := r.processor.ProcessFile(ctx, path)
	sum.count(err)

	log := logger.With("file", name, "status", record.Status, "duration", time.Since(start).Round(time.Millisecond))
	switch {
	case err == nil:
		log.Info("email cleaned")
	case KindOf(err) == KindNoContent:
		log.Info("no text content")
	default:
		log.Warn("email not cleaned", "error", err)
	}

	if werr := rec.Append(record); werr != nil {
		sum.WriteErrors++
		logger.Error("failed to append record", "file", name, "error", werr)
	} else {
		logger.Debug("record written", "file", name, "output", rec.Path())
	}

	if err == nil && r.training != nil {
		ex := TrainingExample{EmailID: record.EmailID, Input: record.Original, Output: record.Cleaned}
		if terr := r.training.Write(ex); terr != nil {
			logger.Warn("failed to write training example", "file", name, "error", terr)
		}
	}

	if r.reporter != nil {
		r.reporter.FileDone(record, err)
	}
}
