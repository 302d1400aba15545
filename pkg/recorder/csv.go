// Package recorder persists per-email outcomes to a CSV comparison file.
//
// The file is created once with a header row; each Append opens it in
// append mode, writes one row, syncs and closes it again, so every row that
// was reported written survives a crash of the process.
package recorder

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDir is where derived output paths are placed.
const DefaultDir = "output"

// Header is the first row of every comparison file.
var Header = []string{"Email_ID", "Original_Email", "Cleaned_Email", "Processing_Status"}

// Record is one row of the comparison file.
type Record struct {
	EmailID  string
	Original string
	Cleaned  string
	Status   string
}

func (r Record) fields() []string {
	return []string{r.EmailID, r.Original, r.Cleaned, r.Status}
}

// CSV appends records to a comparison file.
type CSV struct {
	path string
}

// Option configures Create.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used to derive a default file name.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// DefaultPath returns output/email_comparison_<YYYYMMDD_HHMMSS>.csv for t.
func DefaultPath(t time.Time) string {
	return filepath.Join(DefaultDir, "email_comparison_"+t.Format("20060102_150405")+".csv")
}

// Create initialises the comparison file at path and writes the header. An
// empty path derives one from the current time. Missing parent directories
// are created and an existing file is truncated.
func Create(path string, opts ...Option) (*CSV, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		path = DefaultPath(o.now())
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, encodeRow(Header), 0o644); err != nil {
		return nil, fmt.Errorf("initialise %s: %w", path, err)
	}
	return &CSV{path: path}, nil
}

// Path returns the resolved output path.
func (c *CSV) Path() string {
	return c.path
}

// Append writes one row to the end of the file.
func (c *CSV) Append(r Record) error {
	f, err := os.OpenFile(c.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.path, err)
	}

	if _, err := f.Write(encodeRow(r.fields())); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", c.path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", c.path, err)
	}
	return f.Close()
}

// encodeRow renders fields with every field quoted, embedded quotes doubled
// and a CRLF terminator.
func encodeRow(fields []string) []byte {
	var buf bytes.Buffer
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteString("\r\n")
	return buf.Bytes()
}
