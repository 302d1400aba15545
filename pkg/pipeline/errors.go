package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies why an email could not be cleaned.
type Kind int

const (
	// KindFile means the file could not be read or parsed.
	KindFile Kind = iota + 1
	// KindNoContent means the message had no non-whitespace text.
	KindNoContent
	// KindLLM means the cleaner failed.
	KindLLM
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindNoContent:
		return "no_content"
	case KindLLM:
		return "llm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Processing statuses written to the comparison file.
const (
	StatusSuccess   = "Success"
	StatusNoContent = "No text content"
	statusFileError = "File Error: "
	statusLLMError  = "LLM Error: "
)

// Placeholder texts stored instead of a body.
const (
	PlaceholderFileError = "Error reading file"
	PlaceholderNoContent = "No content"
)

var (
	// ErrNoContent is the cause of every KindNoContent error.
	ErrNoContent = errors.New("no text content")

	// ErrNoFiles reports an input folder without .eml files. Run treats it
	// as a normal, empty batch.
	ErrNoFiles = errors.New("no .eml files found")
)

// Error is a per-file processing failure.
type Error struct {
	Kind Kind
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.File, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the Processing_Status value for the failure.
func (e *Error) Status() string {
	switch e.Kind {
	case KindNoContent:
		return StatusNoContent
	case KindLLM:
		return statusLLMError + e.detail()
	default:
		return statusFileError + e.detail()
	}
}

func (e *Error) detail() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

// KindOf returns the Kind carried by err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
