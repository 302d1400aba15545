package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter writes each document as a (by default indented) JSON value.
type JSONWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONWriter creates a JSON writer. An empty indent writes compact JSON.
func NewJSONWriter(w io.Writer, indent string) *JSONWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return &JSONWriter{w: bw, enc: enc}
}

// Write encodes data followed by a newline.
func (w *JSONWriter) Write(data any) error {
	return w.enc.Encode(data)
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL). Each line is flushed
// as soon as it is written so an interrupted run keeps complete lines.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{w: bw, enc: enc}
}

// Write writes a single item as a JSON line.
func (w *JSONLWriter) Write(data any) error {
	if err := w.enc.Encode(data); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
