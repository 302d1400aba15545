package mailtext

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func extract(t *testing.T, raw string) *Extraction {
	t.Helper()
	got, err := New().ExtractMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ExtractMessage() error = %v", err)
	}
	return got
}

func TestExtractMessage_SinglePart(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain passthrough",
			raw:  "Subject: hi\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nHi Bob,\r\nSee you at 3pm.\r\n",
			want: "Hi Bob,\nSee you at 3pm.\n",
		},
		{
			name: "no content type defaults to plain",
			raw:  "Subject: hi\n\nJust text\n",
			want: "Just text\n",
		},
		{
			name: "latin-1 charset",
			raw:  "Content-Type: text/plain; charset=iso-8859-1\n\ncaf\xe9\n",
			want: "café\n",
		},
		{
			name: "quoted printable",
			raw:  "Content-Type: text/plain; charset=utf-8\nContent-Transfer-Encoding: quoted-printable\n\nsoft=\nbreak\n",
			want: "softbreak\n",
		},
		{
			name: "html collapses whitespace",
			raw:  "Content-Type: text/html\n\n<html><head><style>p{}</style></head><body><p>Hi   <b>Ann</b></p>\n\n<p>Thanks</p></body></html>",
			want: "Hi Ann Thanks",
		},
		{
			name: "image only",
			raw:  "Content-Type: image/png\n\nnot really a png",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(t, tt.raw)
			if got.Text != tt.want {
				t.Errorf("Text = %q, want %q", got.Text, tt.want)
			}
			if got.Multipart {
				t.Error("Multipart = true for a single-part message")
			}
		})
	}
}

func TestExtractMessage_UnknownCharsetFallsBackToUTF8(t *testing.T) {
	got := extract(t, "Content-Type: text/plain; charset=x-made-up\n\nok \xff done")
	if !utf8.ValidString(got.Text) {
		t.Fatalf("Text is not valid UTF-8: %q", got.Text)
	}
	if got.Text != "ok � done" {
		t.Errorf("Text = %q", got.Text)
	}
}

const alternativeMessage = "MIME-Version: 1.0\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\n" +
	"\n" +
	"--b1\n" +
	"Content-Type: text/plain\n" +
	"\n" +
	"Plain body.\n" +
	"--b1\n" +
	"Content-Type: text/html\n" +
	"\n" +
	"<p>HTML <i>body</i>.</p>\n" +
	"--b1--\n"

func TestExtractMessage_MultipartConcatenatesInOrder(t *testing.T) {
	got := extract(t, alternativeMessage)

	if got.Text != "Plain body.HTML body ." {
		t.Errorf("Text = %q", got.Text)
	}
	if !got.Multipart {
		t.Error("Multipart = false")
	}
	if got.Parts != 2 || got.TextParts != 2 {
		t.Errorf("Parts = %d, TextParts = %d, want 2, 2", got.Parts, got.TextParts)
	}
}

func TestExtractMessage_AttachmentOnly(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=zz\n" +
		"\n" +
		"--zz\n" +
		"Content-Type: application/pdf\n" +
		"Content-Disposition: attachment; filename=\"report.pdf\"\n" +
		"\n" +
		"%PDF-1.4 fake\n" +
		"--zz--\n"

	got := extract(t, raw)
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
	if got.TextParts != 0 || len(got.Skipped) != 1 {
		t.Fatalf("TextParts = %d, Skipped = %+v", got.TextParts, got.Skipped)
	}
	sp := got.Skipped[0]
	if sp.ContentType != "application/pdf" || sp.Filename != "report.pdf" {
		t.Errorf("skipped part = %+v", sp)
	}
	if sp.Detected != "application/pdf" {
		t.Errorf("Detected = %q, want application/pdf", sp.Detected)
	}
	if sp.Size == 0 {
		t.Error("Size = 0")
	}
}

func TestExtractMessage_NestedMessage(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=outer\n" +
		"\n" +
		"--outer\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"FYI below.\n" +
		"--outer\n" +
		"Content-Type: message/rfc822\n" +
		"\n" +
		"Subject: original\n" +
		"Content-Type: text/plain\n" +
		"\n" +
		"Original text.\n" +
		"--outer--\n"

	got := extract(t, raw)
	if got.Text != "FYI below.Original text." {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestExtractMessage_DepthLimit(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=a\n\n" +
		"--a\nContent-Type: multipart/mixed; boundary=b\n\n" +
		"--b\nContent-Type: text/plain\n\ndeep\n" +
		"--b--\n" +
		"--a--\n"

	_, err := New(WithMaxDepth(1)).ExtractMessage(strings.NewReader(raw))
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("error = %v, want ErrTooDeep", err)
	}

	got := extract(t, raw)
	if got.Text != "deep" {
		t.Errorf("Text = %q, want deep", got.Text)
	}
}

func TestExtractMessage_BrokenMultipartKeepsText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "missing closing boundary",
			raw: "Content-Type: multipart/mixed; boundary=\"b\"\r\n\r\n" +
				"--b\r\nContent-Type: text/plain\r\n\r\nHello there\r\nJane\r\n",
			want: "Hello there\nJane",
		},
		{
			name: "stray content type parameter",
			raw: "Content-Type: multipart/mixed; boundary=\"b\"; foo\r\n\r\n" +
				"--b\r\nContent-Type: text/plain\r\n\r\nHello there\r\nJane\r\n--b--\r\n",
			want: "Hello there\nJane",
		},
		{
			name: "stray parameter and missing closing boundary",
			raw: "Content-Type: multipart/mixed; boundary=\"b\"; foo\r\n\r\n" +
				"--b\r\nContent-Type: text/plain\r\n\r\nHello there\r\nJane\r\n",
			want: "Hello there\nJane",
		},
		{
			name: "second part cut off",
			raw: "Content-Type: multipart/alternative; boundary=b\n\n" +
				"--b\nContent-Type: text/plain\n\nfirst\n" +
				"--b\nContent-Type: text/html\n\n<p>sec",
			want: "firstsec",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract(t, tt.raw)
			if !strings.HasPrefix(got.Text, tt.want) {
				t.Errorf("Text = %q, want prefix %q", got.Text, tt.want)
			}
			if !got.Multipart {
				t.Error("Multipart = false, want true")
			}
			if got.TextParts == 0 {
				t.Error("TextParts = 0, want at least one")
			}
		})
	}
}

func TestExtractMessage_BrokenFramingRecordsDefect(t *testing.T) {
	raw := "Content-Type: multipart/mixed; boundary=b\n\n" +
		"--b\nContent-Type: text/plain\n\nkept\n" +
		"--b\nContent-Type: text/plain\n"

	got := extract(t, raw)
	if !strings.HasPrefix(got.Text, "kept") {
		t.Errorf("Text = %q, want prefix kept", got.Text)
	}
	if len(got.Defects) == 0 {
		t.Error("Defects is empty, want the framing error recorded")
	}
}

func TestLenientParam(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{`multipart/mixed; boundary="b"; foo`, "b"},
		{`multipart/mixed; foo; BOUNDARY=abc`, "abc"},
		{`multipart/mixed`, ""},
		{`multipart/mixed; charset=utf-8`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := lenientParam(tt.value, "boundary"); got != tt.want {
				t.Errorf("lenientParam() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractMessage_MalformedHeader(t *testing.T) {
	_, err := New().ExtractMessage(strings.NewReader("this line has no colon\n\nbody\n"))
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", "text/plain"},
		{"TEXT/HTML; charset=utf-8", "text/html"},
		{"garbage", "text/plain"},
		{"text/plain; charset=utf-8; foo", "text/plain"},
		{"image/png", "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			raw := "X-Test: 1\n\n"
			if tt.header != "" {
				raw = "Content-Type: " + tt.header + "\n\n"
			}
			e := mustRead(t, raw)
			if got := MediaType(&e.Header); got != tt.want {
				t.Errorf("MediaType(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
