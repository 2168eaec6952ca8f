package services

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type fakeTelegram struct {
	mu          sync.Mutex
	sent        []domain.Response
	downloadErr error
}

func (f *fakeTelegram) DownloadFile(_ context.Context, _ string, w io.Writer) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	_, err := w.Write([]byte("audio bytes"))
	return err
}

func (f *fakeTelegram) Send(_ context.Context, r domain.Response) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
	return len(f.sent), nil
}

type fakeTranscriber struct {
	text string
	err  error

	req     domain.TranscriptionRequest
	existed bool
}

func (f *fakeTranscriber) SubmitAudio(_ context.Context, req domain.TranscriptionRequest) (string, error) {
	f.req = req
	_, statErr := os.Stat(req.Path)
	f.existed = statErr == nil
	return f.text, f.err
}

type fakeHistory struct {
	records []domain.TranscriptRecord
	err     error
}

func (f *fakeHistory) GetByChatID(_ context.Context, _ int64, limit int) ([]domain.TranscriptRecord, error) {
	if len(f.records) > limit {
		return f.records[:limit], f.err
	}
	return f.records, f.err
}

func TestTranscribeInline(t *testing.T) {
	tg := &fakeTelegram{}
	tr := &fakeTranscriber{text: "hello world"}
	svc := NewAudioService(tg, tr, &fakeHistory{}, t.TempDir(), false)

	svc.Transcribe(context.Background(), domain.AudioFile{ChatID: 1, FileID: "f", Kind: domain.AudioVoice, Size: 1024})

	if !tr.existed {
		t.Error("downloaded file must exist while transcribing")
	}
	if _, err := os.Stat(tr.req.Path); !os.IsNotExist(err) {
		t.Errorf("downloaded file %s was not removed", tr.req.Path)
	}
	if !strings.HasSuffix(tr.req.Path, ".ogg") {
		t.Errorf("voice download should keep the .ogg extension: %s", tr.req.Path)
	}

	if len(tg.sent) != 3 {
		t.Fatalf("sent %d messages, want 3: %+v", len(tg.sent), tg.sent)
	}
	if tg.sent[0].Text != acceptedText {
		t.Errorf("notice = %q", tg.sent[0].Text)
	}
	if tg.sent[1].EditMessageID != 1 || tg.sent[1].Text != doneInlineText {
		t.Errorf("notice edit = %+v", tg.sent[1])
	}
	if tg.sent[2].Text != "hello world" || tg.sent[2].File != nil {
		t.Errorf("result = %+v", tg.sent[2])
	}
}

func TestTranscribeLongResultAsFile(t *testing.T) {
	tg := &fakeTelegram{}
	tr := &fakeTranscriber{text: strings.Repeat("word ", domain.MaxInlineTextLength)}
	svc := NewAudioService(tg, tr, &fakeHistory{}, t.TempDir(), true)

	svc.Transcribe(context.Background(), domain.AudioFile{
		ChatID:   1,
		FileID:   "f",
		FileName: "lecture.m4a",
		MimeType: "audio/mp4",
		Size:     6 << 20,
		Kind:     domain.AudioDocument,
	})

	if !strings.Contains(tg.sent[0].Text, largeFileText) {
		t.Errorf("large file notice missing: %q", tg.sent[0].Text)
	}
	if tg.sent[1].Text != doneFileText {
		t.Errorf("notice edit = %q", tg.sent[1].Text)
	}
	last := tg.sent[len(tg.sent)-1]
	if last.File == nil || last.File.Name != "lecture_transcription.txt" {
		t.Fatalf("expected transcript file, got %+v", last)
	}
	if tr.req.Name != "lecture.m4a" {
		t.Errorf("request name = %q", tr.req.Name)
	}
}

func TestTranscribeRejections(t *testing.T) {
	tests := []struct {
		name string
		file domain.AudioFile
		want string
	}{
		{
			name: "non audio document",
			file: domain.AudioFile{ChatID: 1, FileName: "a.pdf", MimeType: "application/pdf", Kind: domain.AudioDocument},
			want: notAudioText,
		},
		{
			name: "too large",
			file: domain.AudioFile{ChatID: 1, Size: domain.MaxUploadSize + 1, Kind: domain.AudioTrack},
			want: tooLargeText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &fakeTelegram{}
			tr := &fakeTranscriber{}
			NewAudioService(tg, tr, &fakeHistory{}, t.TempDir(), false).Transcribe(context.Background(), tt.file)

			if len(tg.sent) != 1 || tg.sent[0].Text != tt.want {
				t.Errorf("sent = %+v, want single %q", tg.sent, tt.want)
			}
			if tr.req.Path != "" {
				t.Error("transcriber must not be called")
			}
		})
	}
}

func TestTranscribeFailure(t *testing.T) {
	results := []domain.SegmentResult{
		domain.SegmentSuccess(domain.SegmentRange{Index: 0}, "a"),
		domain.SegmentFailure(domain.SegmentRange{Index: 1}, errors.New("boom")),
	}
	tg := &fakeTelegram{}
	tr := &fakeTranscriber{err: domain.NewAggregateFailure(results)}

	NewAudioService(tg, tr, &fakeHistory{}, t.TempDir(), false).
		Transcribe(context.Background(), domain.AudioFile{ChatID: 1, Kind: domain.AudioVoice})

	last := tg.sent[len(tg.sent)-1]
	if !strings.Contains(last.Text, "segment(s) 2 of 2") {
		t.Errorf("failure message = %q", last.Text)
	}
}

func TestTranscribeDownloadFailure(t *testing.T) {
	tg := &fakeTelegram{downloadErr: errors.New("network")}
	tr := &fakeTranscriber{}

	NewAudioService(tg, tr, &fakeHistory{}, t.TempDir(), false).
		Transcribe(context.Background(), domain.AudioFile{ChatID: 1, Kind: domain.AudioVoice})

	if last := tg.sent[len(tg.sent)-1]; last.Text != downloadFailText {
		t.Errorf("last message = %q", last.Text)
	}
	if tr.req.Path != "" {
		t.Error("transcriber must not be called")
	}
}

func TestTranscribeCanceledSendsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tg := &fakeTelegram{}
	tr := &fakeTranscriber{err: context.Canceled}
	NewAudioService(tg, tr, &fakeHistory{}, t.TempDir(), false).
		Transcribe(ctx, domain.AudioFile{ChatID: 1, Kind: domain.AudioVoice})

	if len(tg.sent) != 0 {
		t.Errorf("nothing should be sent after cancel: %+v", tg.sent)
	}
}

func TestSendHistory(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	history := &fakeHistory{records: []domain.TranscriptRecord{
		{SourceName: "talk.mp3", Duration: 90 * time.Second, Segments: 1, Status: domain.RunSucceeded, TextLength: 120, CreatedAt: created},
		{SourceName: "long.mp3", Duration: time.Hour, Segments: 5, Status: domain.RunFailed, FailedSegments: []int{1, 3}, CreatedAt: created},
	}}
	tg := &fakeTelegram{}

	NewAudioService(tg, &fakeTranscriber{}, history, t.TempDir(), false).SendHistory(context.Background(), 1)

	if len(tg.sent) != 1 || !tg.sent[0].HTML {
		t.Fatalf("expected one HTML message, got %+v", tg.sent)
	}
	text := tg.sent[0].Text
	for _, want := range []string{"talk.mp3", "120 characters", "segment(s) 2, 4", "2025-03-01 10:30"} {
		if !strings.Contains(text, want) {
			t.Errorf("history %q does not contain %q", text, want)
		}
	}
}

func TestSendHistoryEmpty(t *testing.T) {
	tg := &fakeTelegram{}
	NewAudioService(tg, &fakeTranscriber{}, &fakeHistory{}, t.TempDir(), false).SendHistory(context.Background(), 1)

	if len(tg.sent) != 1 || tg.sent[0].Text != emptyHistoryText {
		t.Errorf("sent = %+v", tg.sent)
	}
}
