package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/sigstrip/pkg/recorder"
)

func TestRecordFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want recorder.Record
	}{
		{
			name: "success",
			want: recorder.Record{EmailID: "m.eml", Original: "orig", Cleaned: "clean", Status: "Success"},
		},
		{
			name: "file error",
			err:  &Error{Kind: KindFile, File: "m.eml", Err: errors.New("permission denied")},
			want: recorder.Record{EmailID: "m.eml", Original: "Error reading file", Cleaned: "Error reading file", Status: "File Error: permission denied"},
		},
		{
			name: "no content",
			err:  &Error{Kind: KindNoContent, File: "m.eml", Err: ErrNoContent},
			want: recorder.Record{EmailID: "m.eml", Original: "No content", Cleaned: "No content", Status: "No text content"},
		},
		{
			name: "llm error",
			err:  &Error{Kind: KindLLM, File: "m.eml", Err: errors.New("timeout")},
			want: recorder.Record{EmailID: "m.eml", Original: "orig", Cleaned: "", Status: "LLM Error: timeout"},
		},
		{
			name: "plain error",
			err:  errors.New("disk on fire"),
			want: recorder.Record{EmailID: "m.eml", Original: "Error reading file", Cleaned: "Error reading file", Status: "File Error: disk on fire"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecordFor("m.eml", "orig", "clean", tt.err)
			if got != tt.want {
				t.Errorf("RecordFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProcessFile_Kinds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.eml"), "Subject: a\n\nHi\nBest regards,\nBob\n")
	writeFile(t, filepath.Join(dir, "blank.eml"), "Subject: b\n\n  \n\t\n")
	writeFile(t, filepath.Join(dir, "bad.eml"), "not a header\n\nbody\n")
	writeFile(t, filepath.Join(dir, "truncated.eml"),
		"Content-Type: multipart/mixed; boundary=\"b\"\r\n\r\n--b\r\nContent-Type: text/plain\r\n\r\nHello there\r\nJane\r\n")

	p := NewProcessor(nil, stripBestRegards)

	tests := []struct {
		file     string
		wantKind Kind
		status   string
	}{
		{"ok.eml", 0, "Success"},
		{"blank.eml", KindNoContent, "No text content"},
		{"bad.eml", KindFile, "File Error: "},
		{"truncated.eml", 0, "Success"},
		{"missing.eml", KindFile, "File Error: "},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			rec, err := p.ProcessFile(context.Background(), filepath.Join(dir, tt.file))
			if KindOf(err) != tt.wantKind {
				t.Fatalf("KindOf(%v) = %v, want %v", err, KindOf(err), tt.wantKind)
			}
			if !strings.HasPrefix(rec.Status, tt.status) {
				t.Errorf("Status = %q, want prefix %q", rec.Status, tt.status)
			}
			if rec.EmailID != tt.file {
				t.Errorf("EmailID = %q", rec.EmailID)
			}
		})
	}

	rec, _ := p.ProcessFile(context.Background(), filepath.Join(dir, "ok.eml"))
	if rec.Cleaned != "Hi" {
		t.Errorf("Cleaned = %q, want Hi", rec.Cleaned)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.eml", "a.eml", ".hidden.eml", "notes.txt", "c.EML"} {
		writeFile(t, filepath.Join(dir, name), "Subject: x\n\nx\n")
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.eml"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if strings.Join(names, ",") != "a.eml,b.eml" {
		t.Errorf("Discover() = %v, want [a.eml b.eml]", names)
	}

	if _, err := Discover(t.TempDir()); !errors.Is(err, ErrNoFiles) {
		t.Errorf("empty folder error = %v, want ErrNoFiles", err)
	}
}

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&Error{Kind: KindLLM, File: "x.eml", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("Error does not unwrap to its cause")
	}
	if err.Error() != "x.eml: llm error: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf(plain error) != 0")
	}
}
