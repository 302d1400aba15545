// Package mailtext extracts readable body text from MIME email messages.
//
// Only text/plain and text/html leaves contribute text. HTML is reduced to
// its visible text with whitespace collapsed; plain text is kept as decoded.
// Multipart trees are walked depth-first and the per-part texts are
// concatenated in order.
package mailtext

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
	"github.com/gabriel-vasile/mimetype"

	"github.com/jmylchreest/sigstrip/internal/logger"
)

const (
	contentTypeTextPlain = "text/plain"
	contentTypeTextHTML  = "text/html"
	contentTypeRFC822    = "message/rfc822"
)

// DefaultMaxDepth bounds multipart and message/rfc822 nesting.
const DefaultMaxDepth = 32

// sniffLimit is how much of a skipped part is read for type detection.
const sniffLimit = 3072

// ErrTooDeep is returned when a message nests deeper than the extractor allows.
var ErrTooDeep = errors.New("mime nesting too deep")

// SkippedPart describes a leaf part that contributed no text.
type SkippedPart struct {
	ContentType string // declared media type
	Detected    string // media type sniffed from the payload
	Filename    string
	Size        int64
}

// Extraction holds the text of one message plus what was walked to get it.
type Extraction struct {
	Text      string
	Multipart bool
	Parts     int // leaf parts visited
	TextParts int
	Skipped   []SkippedPart
	Defects   []string // structural problems tolerated while walking
}

// Extractor turns MIME messages into plain text.
type Extractor struct {
	maxDepth int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.maxDepth = n
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	x := &Extractor{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ExtractMessage parses one RFC 822 message and returns its text.
func (x *Extractor) ExtractMessage(r io.Reader) (*Extraction, error) {
	entity, err := message.Read(r)
	if err != nil && !recoverable(err) {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	out := &Extraction{Multipart: entity.MultipartReader() != nil}
	var sb strings.Builder
	if err := x.walk(entity, 0, &sb, out); err != nil {
		return nil, err
	}
	out.Text = sb.String()
	return out, nil
}

// ExtractPart returns the text of a single leaf part. Non-text parts yield "".
func (x *Extractor) ExtractPart(e *message.Entity) (string, error) {
	mediaType := MediaType(&e.Header)
	switch mediaType {
	case contentTypeTextPlain, contentTypeTextHTML:
	default:
		return "", nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		// A missing closing boundary truncates the part; keep what was read.
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("read %s body: %w", mediaType, err)
		}
		logger.Debug("truncated body part", "content_type", mediaType, "bytes", len(body), "error", err)
	}
	text := decodeUTF8(body)

	if mediaType == contentTypeTextHTML {
		return HTMLToText(text)
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

func (x *Extractor) walk(e *message.Entity, depth int, sb *strings.Builder, out *Extraction) error {
	if depth > x.maxDepth {
		return ErrTooDeep
	}

	if mr := multipartReader(e); mr != nil {
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil && !recoverable(err) {
				// Broken framing ends the part list; text gathered so far stays.
				logger.Debug("multipart ended early", "depth", depth, "error", err)
				out.Defects = append(out.Defects, err.Error())
				return nil
			}
			if err := x.walk(part, depth+1, sb, out); err != nil {
				return err
			}
		}
	}

	mediaType := MediaType(&e.Header)
	if mediaType == contentTypeRFC822 {
		inner, err := message.Read(e.Body)
		if err != nil && !recoverable(err) {
			return fmt.Errorf("parse attached message: %w", err)
		}
		return x.walk(inner, depth+1, sb, out)
	}

	out.Parts++
	if mediaType != contentTypeTextPlain && mediaType != contentTypeTextHTML {
		out.Skipped = append(out.Skipped, describeSkipped(e, mediaType))
		return nil
	}

	text, err := x.ExtractPart(e)
	if err != nil {
		return err
	}
	out.TextParts++
	sb.WriteString(text)
	return nil
}

// MediaType returns the lower-cased media type of a part. A missing or
// unusable Content-Type means text/plain, the RFC 2045 default. Malformed
// parameters do not hide the media type.
func MediaType(h *message.Header) string {
	if h.Get("Content-Type") == "" {
		return contentTypeTextPlain
	}
	t, _, err := h.ContentType()
	if err != nil {
		t, _, _ = strings.Cut(t, ";")
	}
	t = strings.ToLower(strings.TrimSpace(t))
	if !strings.Contains(t, "/") {
		return contentTypeTextPlain
	}
	return t
}

// multipartReader returns a part iterator for multipart entities. When the
// Content-Type parameters fail strict parsing, the boundary is recovered
// from the raw header value.
func multipartReader(e *message.Entity) message.MultipartReader {
	mr := e.MultipartReader()
	if mr == nil {
		return nil
	}
	if _, _, err := e.Header.ContentType(); err == nil {
		return mr
	}
	boundary := lenientParam(e.Header.Get("Content-Type"), "boundary")
	if boundary == "" {
		return mr
	}
	return &lenientMultipart{r: textproto.NewMultipartReader(e.Body, boundary)}
}

type lenientMultipart struct {
	r *textproto.MultipartReader
}

func (m *lenientMultipart) NextPart() (*message.Entity, error) {
	p, err := m.r.NextPart()
	if err != nil {
		return nil, err
	}
	return message.New(message.Header{Header: p.Header}, p)
}

func (m *lenientMultipart) Close() error { return nil }

// lenientParam finds a parameter in a header value that mime.ParseMediaType
// rejects, e.g. one with a stray attribute without a value.
func lenientParam(value, name string) string {
	for _, field := range strings.Split(value, ";")[1:] {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), name) {
			continue
		}
		return strings.Trim(strings.TrimSpace(v), `"`)
	}
	return ""
}

func describeSkipped(e *message.Entity, mediaType string) SkippedPart {
	head := make([]byte, sniffLimit)
	n, _ := io.ReadFull(e.Body, head)
	rest, _ := io.Copy(io.Discard, e.Body)

	sp := SkippedPart{
		ContentType: mediaType,
		Size:        int64(n) + rest,
	}
	if n > 0 {
		sp.Detected = mimetype.Detect(head[:n]).String()
	}
	if _, params, err := e.Header.ContentDisposition(); err == nil {
		sp.Filename = params["filename"]
	}
	if sp.Filename == "" {
		if _, params, err := e.Header.ContentType(); err == nil {
			sp.Filename = params["name"]
		}
	}
	return sp
}

// recoverable reports parse errors after which go-message still hands back a
// usable entity with an undecoded body.
func recoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
