package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
	"github.com/dskvich/speech-transcriber-bot/pkg/output"
	"github.com/dskvich/speech-transcriber-bot/pkg/render"
)

const (
	historyLimit = 5

	greetingText = "Send me a **voice message** or an **audio file** and I will reply with its transcript.\n\n" +
		"Short transcripts arrive as a message, long ones as a .txt file.\n" +
		"Use /history to see your recent transcriptions."
	usageText         = "Send an audio file or a voice message."
	acceptedText      = "File accepted, transcription started."
	largeFileText     = " The file is large, this may take a few minutes."
	tooLargeText      = "The file is too large. The limit is 50 MB."
	notAudioText      = "This document is not an audio file. Please send audio."
	downloadFailText  = "Could not download the file. Please try again."
	doneInlineText    = "Done. Sending result:"
	doneFileText      = "Done. Result sent as a file:"
	emptyHistoryText  = "No transcriptions yet."
	historyFailedText = "Could not load the history."
)

type TelegramClient interface {
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	Send(ctx context.Context, response domain.Response) (int, error)
}

type Transcriber interface {
	SubmitAudio(ctx context.Context, req domain.TranscriptionRequest) (string, error)
}

type HistoryRepository interface {
	GetByChatID(ctx context.Context, chatID int64, limit int) ([]domain.TranscriptRecord, error)
}

type audioService struct {
	client        TelegramClient
	transcriber   Transcriber
	history       HistoryRepository
	tempDir       string
	dialogLogging bool
}

func NewAudioService(
	client TelegramClient,
	transcriber Transcriber,
	history HistoryRepository,
	tempDir string,
	dialogLogging bool,
) *audioService {
	return &audioService{
		client:        client,
		transcriber:   transcriber,
		history:       history,
		tempDir:       tempDir,
		dialogLogging: dialogLogging,
	}
}

func (a *audioService) SendGreeting(ctx context.Context, chatID int64) {
	a.send(ctx, domain.Response{ChatID: chatID, Text: render.ToHTML(greetingText), HTML: true})
}

func (a *audioService) SendUsage(ctx context.Context, chatID int64) {
	a.send(ctx, domain.Response{ChatID: chatID, Text: usageText})
}

func (a *audioService) SendHistory(ctx context.Context, chatID int64) {
	records, err := a.history.GetByChatID(ctx, chatID, historyLimit)
	if err != nil {
		slog.ErrorContext(ctx, "Loading transcript history", "chatID", chatID, logger.Err(err))
		a.send(ctx, domain.Response{ChatID: chatID, Text: historyFailedText})
		return
	}

	if len(records) == 0 {
		a.send(ctx, domain.Response{ChatID: chatID, Text: emptyHistoryText})
		return
	}

	a.send(ctx, domain.Response{ChatID: chatID, Text: render.ToHTML(historyMarkdown(records)), HTML: true})
}

func historyMarkdown(records []domain.TranscriptRecord) string {
	var b strings.Builder
	b.WriteString("**Recent transcriptions**\n\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- %s %s (%s, %d segment(s)): %s",
			r.CreatedAt.Format("2006-01-02 15:04"),
			markdownEscaper.Replace(r.SourceName),
			r.Duration.Round(time.Second),
			r.Segments,
			r.Status,
		)
		switch {
		case r.Status == domain.RunSucceeded:
			fmt.Fprintf(&b, ", %d characters", r.TextLength)
		case len(r.FailedSegments) > 0:
			nums := make([]string, len(r.FailedSegments))
			for i, idx := range r.FailedSegments {
				nums[i] = fmt.Sprint(idx + 1)
			}
			fmt.Fprintf(&b, ", segment(s) %s", strings.Join(nums, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`", "[", "\\[")

// Transcribe downloads file, runs it through the pipeline and replies with
// the transcript or a failure message. Nothing is sent once ctx is canceled.
func (a *audioService) Transcribe(ctx context.Context, file domain.AudioFile) {
	if a.dialogLogging {
		slog.InfoContext(ctx, "Audio received", "chatID", file.ChatID, "name", file.FileName, "mimeType", file.MimeType, "size", file.Size)
	} else {
		slog.InfoContext(ctx, "Audio received", "chatID", file.ChatID, "size", file.Size)
	}

	if file.Kind == domain.AudioDocument && !strings.HasPrefix(file.MimeType, "audio/") {
		slog.InfoContext(ctx, "Rejected non-audio document", "mimeType", file.MimeType)
		a.send(ctx, domain.Response{ChatID: file.ChatID, Text: notAudioText})
		return
	}

	if file.Size > domain.MaxUploadSize {
		slog.InfoContext(ctx, "Rejected oversized file", "size", file.Size)
		a.send(ctx, domain.Response{ChatID: file.ChatID, Text: tooLargeText})
		return
	}

	notice := acceptedText
	if file.Size > domain.LargeUploadSize {
		notice += largeFileText
	}
	noticeID := a.send(ctx, domain.Response{ChatID: file.ChatID, Text: notice})

	path, err := a.download(ctx, file)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.ErrorContext(ctx, "Downloading audio", "fileID", file.FileID, logger.Err(err))
		a.send(ctx, domain.Response{ChatID: file.ChatID, Text: downloadFailText})
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.WarnContext(ctx, "Removing downloaded audio", "path", path, logger.Err(err))
		}
	}()

	text, err := a.transcriber.SubmitAudio(ctx, domain.TranscriptionRequest{
		ChatID: file.ChatID,
		Path:   path,
		Name:   displayName(file),
	})
	if err != nil {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Transcription canceled")
			return
		}
		a.send(ctx, domain.Response{ChatID: file.ChatID, Text: FailureMessage(err)})
		return
	}

	if a.dialogLogging {
		slog.InfoContext(ctx, "Transcript produced", "chatID", file.ChatID, "text", text)
	} else {
		slog.InfoContext(ctx, "Transcript produced", "chatID", file.ChatID, "chars", len([]rune(text)))
	}

	delivery := output.Prepare(text, baseName(file))

	done := doneInlineText
	if delivery.IsFile() {
		done = doneFileText
	}
	if noticeID != 0 {
		a.send(ctx, domain.Response{ChatID: file.ChatID, Text: done, EditMessageID: noticeID})
	}

	a.send(ctx, domain.Response{ChatID: file.ChatID, Text: delivery.Text, File: delivery.File})
}

func (a *audioService) download(ctx context.Context, file domain.AudioFile) (string, error) {
	f, err := os.CreateTemp(a.tempDir, "upload-*"+extension(file))
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()

	err = a.client.DownloadFile(ctx, file.FileID, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func extension(file domain.AudioFile) string {
	if ext := filepath.Ext(file.FileName); ext != "" {
		return ext
	}
	if file.Kind == domain.AudioVoice {
		return ".ogg"
	}
	return ".audio"
}

func displayName(file domain.AudioFile) string {
	if file.FileName != "" {
		return file.FileName
	}
	if file.Kind == domain.AudioVoice {
		return "voice message"
	}
	return "audio"
}

func baseName(file domain.AudioFile) string {
	if file.FileName == "" {
		if file.Kind == domain.AudioVoice {
			return "voice_transcription"
		}
		return "transcription"
	}
	return strings.TrimSuffix(file.FileName, filepath.Ext(file.FileName)) + "_transcription"
}

func (a *audioService) send(ctx context.Context, response domain.Response) int {
	if ctx.Err() != nil {
		return 0
	}
	id, err := a.client.Send(ctx, response)
	if err != nil {
		slog.ErrorContext(ctx, "Sending response", "chatID", response.ChatID, logger.Err(err))
		return 0
	}
	return id
}
