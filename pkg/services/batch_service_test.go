package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type pathTranscriber map[string]string

func (p pathTranscriber) SubmitAudio(_ context.Context, req domain.TranscriptionRequest) (string, error) {
	text, ok := p[filepath.Base(req.Path)]
	if !ok {
		return "", domain.ErrUnreadableAudio
	}
	return text, nil
}

func newTestBatch(t *testing.T, tr Transcriber, out *bytes.Buffer) *batchService {
	t.Helper()
	b, err := NewBatchService(tr, 2, out)
	if err != nil {
		t.Fatal(err)
	}
	b.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return b
}

func TestTranscribeFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "b.mp3")}
	var out bytes.Buffer

	summary, err := newTestBatch(t, pathTranscriber{"a.mp3": "first", "b.mp3": "second"}, &out).
		TranscribeFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}

	if _, err := os.Stat(filepath.Join(dir, "a_transcription_2025-01-02_03-04-05.txt")); err != nil {
		t.Errorf("per-file transcript missing: %v", err)
	}

	combined, err := os.ReadFile(summary.CombinedPath)
	if err != nil {
		t.Fatalf("reading combined file: %v", err)
	}
	if want := "a.mp3\n\nfirst\n\nb.mp3\n\nsecond\n"; string(combined) != want {
		t.Errorf("combined = %q, want %q", combined, want)
	}

	if !strings.Contains(out.String(), "2 succeeded, 0 failed") {
		t.Errorf("summary not printed: %s", out.String())
	}
}

func TestTranscribeFilesWithFailure(t *testing.T) {
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "broken.mp3")}
	var out bytes.Buffer

	summary, err := newTestBatch(t, pathTranscriber{"a.mp3": "first"}, &out).
		TranscribeFiles(context.Background(), paths)
	if err == nil {
		t.Fatal("expected an error when a file fails")
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.CombinedPath != "" {
		t.Error("a single success must not produce a combined file")
	}
	if !strings.Contains(out.String(), "FAILED") {
		t.Errorf("failure not reported: %s", out.String())
	}
}

func TestNewBatchServiceRejectsZeroConcurrency(t *testing.T) {
	if _, err := NewBatchService(pathTranscriber{}, 0, &bytes.Buffer{}); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
