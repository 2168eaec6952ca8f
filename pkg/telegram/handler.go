package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
)

type AudioService interface {
	Transcribe(ctx context.Context, file domain.AudioFile)
	SendGreeting(ctx context.Context, chatID int64)
	SendHistory(ctx context.Context, chatID int64)
	SendUsage(ctx context.Context, chatID int64)
}

type handler struct {
	audioService AudioService
}

func NewHandler(audioService AudioService) *handler {
	return &handler{audioService: audioService}
}

func (h *handler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	switch {
	case msg.IsCommand():
		h.handleCommand(ctx, chatID, msg.Command())

	case msg.Voice != nil:
		h.audioService.Transcribe(ctx, domain.AudioFile{
			ChatID:   chatID,
			FileID:   msg.Voice.FileID,
			MimeType: msg.Voice.MimeType,
			Size:     int64(msg.Voice.FileSize),
			Kind:     domain.AudioVoice,
		})

	case msg.Audio != nil:
		h.audioService.Transcribe(ctx, domain.AudioFile{
			ChatID:   chatID,
			FileID:   msg.Audio.FileID,
			FileName: msg.Audio.FileName,
			MimeType: msg.Audio.MimeType,
			Size:     int64(msg.Audio.FileSize),
			Kind:     domain.AudioTrack,
		})

	case msg.Document != nil:
		h.audioService.Transcribe(ctx, domain.AudioFile{
			ChatID:   chatID,
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Size:     int64(msg.Document.FileSize),
			Kind:     domain.AudioDocument,
		})

	default:
		h.audioService.SendUsage(ctx, chatID)
	}
}

func (h *handler) handleCommand(ctx context.Context, chatID int64, cmd string) {
	switch strings.ToLower(cmd) {
	case "start", "help":
		h.audioService.SendGreeting(ctx, chatID)
	case "history":
		h.audioService.SendHistory(ctx, chatID)
	default:
		slog.WarnContext(ctx, "Unhandled command", "cmd", cmd)
		h.audioService.SendUsage(ctx, chatID)
	}
}
