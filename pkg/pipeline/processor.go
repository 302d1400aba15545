package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/sigstrip/internal/logger"
	"github.com/jmylchreest/sigstrip/pkg/cleaner"
	"github.com/jmylchreest/sigstrip/pkg/mailtext"
	"github.com/jmylchreest/sigstrip/pkg/recorder"
)

// Processor turns one .eml file into one comparison record.
type Processor struct {
	extractor *mailtext.Extractor
	cleaner   cleaner.TextCleaner
}

// NewProcessor creates a Processor. A nil extractor uses mailtext defaults.
func NewProcessor(x *mailtext.Extractor, c cleaner.TextCleaner) *Processor {
	if x == nil {
		x = mailtext.New()
	}
	return &Processor{extractor: x, cleaner: c}
}

// ProcessFile extracts, cleans and classifies one file. The returned record
// is always fit for writing; a non-nil error is a *Error describing why the
// email was not cleaned.
func (p *Processor) ProcessFile(ctx context.Context, path string) (recorder.Record, error) {
	id := filepath.Base(path)

	text, err := p.extract(path)
	if err != nil {
		err = &Error{Kind: KindFile, File: id, Err: err}
		return RecordFor(id, "", "", err), err
	}

	if strings.TrimSpace(text) == "" {
		err = &Error{Kind: KindNoContent, File: id, Err: ErrNoContent}
		return RecordFor(id, "", "", err), err
	}

	cleaned, err := p.cleaner.Clean(ctx, text)
	if err != nil {
		err = &Error{Kind: KindLLM, File: id, Err: err}
		return RecordFor(id, text, "", err), err
	}
	return RecordFor(id, text, cleaned, nil), nil
}

func (p *Processor) extract(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ex, err := p.extractor.ExtractMessage(f)
	if err != nil {
		return "", err
	}

	for _, sp := range ex.Skipped {
		logger.Debug("skipped non-text part",
			"file", filepath.Base(path),
			"content_type", sp.ContentType,
			"detected", sp.Detected,
			"filename", sp.Filename,
			"size", humanize.Bytes(uint64(sp.Size)))
	}
	if len(ex.Defects) > 0 {
		logger.Warn("malformed MIME structure, using the text that could be read",
			"file", filepath.Base(path),
			"defects", ex.Defects)
	}
	return ex.Text, nil
}

// RecordFor converts the outcome of processing one email into exactly one
// record. Errors that are not *Error are treated as file errors.
func RecordFor(emailID, original, cleaned string, err error) recorder.Record {
	if err == nil {
		return recorder.Record{EmailID: emailID, Original: original, Cleaned: cleaned, Status: StatusSuccess}
	}

	var pe *Error
	if !errors.As(err, &pe) {
		pe = &Error{Kind: KindFile, File: emailID, Err: err}
	}

	switch pe.Kind {
	case KindNoContent:
		return recorder.Record{
			EmailID:  emailID,
			Original: PlaceholderNoContent,
			Cleaned:  PlaceholderNoContent,
			Status:   pe.Status(),
		}
	case KindLLM:
		return recorder.Record{EmailID: emailID, Original: original, Status: pe.Status()}
	default:
		return recorder.Record{
			EmailID:  emailID,
			Original: PlaceholderFileError,
			Cleaned:  PlaceholderFileError,
			Status:   pe.Status(),
		}
	}
}

// Discover lists the .eml files directly inside folder in lexical order.
// Directories and dotfiles are skipped. A missing or empty folder yields
// ErrNoFiles.
func Discover(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, folder)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".eml") {
			continue
		}
		files = append(files, filepath.Join(folder, name))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, folder)
	}
	return files, nil
}
