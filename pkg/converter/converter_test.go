package converter

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type fakeRunner struct {
	calls  [][]string
	output []byte
	write  []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, f.err
	}
	if f.write != nil {
		if err := os.WriteFile(args[len(args)-1], f.write, 0600); err != nil {
			return nil, err
		}
	}
	return f.output, nil
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		output   string
		duration time.Duration
		format   string
		wantErr  bool
	}{
		{`{"format":{"format_name":"ogg","duration":"125.500000"}}`, 125500 * time.Millisecond, "ogg", false},
		{`{"format":{"format_name":"mp3","duration":"3.0"}}`, 3 * time.Second, "mp3", false},
		{`{"format":{"format_name":"ogg"}}`, 0, "", true},
		{`{"format":{"duration":"N/A"}}`, 0, "", true},
		{`{"format":{"duration":"0.000"}}`, 0, "", true},
		{`{"format":{"duration":"abc"}}`, 0, "", true},
		{`not json`, 0, "", true},
	}

	for _, test := range tests {
		src, err := parseProbeOutput([]byte(test.output))
		if (err != nil) != test.wantErr {
			t.Errorf("parseProbeOutput(%s): expected error %v, got %v", test.output, test.wantErr, err)
			continue
		}
		if src.Duration != test.duration || src.Format != test.format {
			t.Errorf("parseProbeOutput(%s): expected (%v, %s), got (%v, %s)",
				test.output, test.duration, test.format, src.Duration, src.Format)
		}
	}
}

func TestProbeUnreadableAudio(t *testing.T) {
	f := &FFmpeg{ffprobePath: "ffprobe", runner: &fakeRunner{err: errors.New("exit status 1")}}

	_, err := f.Probe(context.Background(), "/tmp/broken.ogg")
	if !errors.Is(err, domain.ErrUnreadableAudio) {
		t.Fatalf("expected unreadable audio error, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{output: []byte(`{"format":{"format_name":"ogg","duration":"61.25"}}`)}
	f := &FFmpeg{ffprobePath: "ffprobe", runner: runner}

	src, err := f.Probe(context.Background(), "/data/voice.ogg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Path != "/data/voice.ogg" || src.Name != "voice.ogg" || src.Duration != 61250*time.Millisecond {
		t.Errorf("unexpected source: %+v", src)
	}
	if runner.calls[0][0] != "ffprobe" || runner.calls[0][len(runner.calls[0])-1] != "/data/voice.ogg" {
		t.Errorf("unexpected ffprobe call: %v", runner.calls[0])
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{write: []byte("mp3-bytes")}
	f := (&FFmpeg{ffmpegPath: "ffmpeg", runner: runner}).InDir(dir)

	src := domain.AudioSource{Path: "/data/lecture.m4a", Name: "lecture.m4a", Duration: 125 * time.Second}
	r := domain.SegmentRange{Index: 1, Start: 50 * time.Second, End: 110 * time.Second}

	payload, err := f.Extract(context.Background(), src, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(payload.Data) != "mp3-bytes" {
		t.Errorf("unexpected payload data %q", payload.Data)
	}
	if payload.Name != "lecture_part_2.mp3" {
		t.Errorf("unexpected payload name %q", payload.Name)
	}
	if payload.Range != r {
		t.Errorf("unexpected payload range %+v", payload.Range)
	}

	args := runner.calls[0]
	if !containsPair(args, "-ss", "50.000") || !containsPair(args, "-t", "60.000") || !containsPair(args, "-i", "/data/lecture.m4a") {
		t.Errorf("unexpected ffmpeg args: %v", args)
	}

	assertEmptyDir(t, dir)
}

func TestExtractCleansUpOnFailure(t *testing.T) {
	dir := t.TempDir()
	f := (&FFmpeg{ffmpegPath: "ffmpeg", runner: &fakeRunner{err: errors.New("exit status 1")}}).InDir(dir)

	_, err := f.Extract(context.Background(), domain.AudioSource{Path: "a.ogg", Name: "a.ogg"}, domain.SegmentRange{End: time.Second})
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	assertEmptyDir(t, dir)
}

func TestExtractRejectsEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	f := (&FFmpeg{ffmpegPath: "ffmpeg", runner: &fakeRunner{}}).InDir(dir)

	_, err := f.Extract(context.Background(), domain.AudioSource{Path: "a.ogg", Name: "a.ogg"}, domain.SegmentRange{End: time.Second})
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	assertEmptyDir(t, dir)
}

func TestExtractArgs(t *testing.T) {
	r := domain.SegmentRange{Start: 1500 * time.Millisecond, End: 4 * time.Second}
	expected := []string{
		"-v", "error", "-y",
		"-ss", "1.500", "-t", "2.500",
		"-i", "in.ogg",
		"-vn", "-ac", "1", "-ar", "16000", "-b:a", "64k", "-f", "mp3",
		"out.mp3",
	}

	if args := extractArgs("in.ogg", "out.mp3", r); !reflect.DeepEqual(args, expected) {
		t.Errorf("expected %v, got %v", expected, args)
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp files to be removed, found %d", len(entries))
	}
}
