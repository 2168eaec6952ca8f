package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
)

const unauthorizedText = "This bot is not available in this chat."

type Handler interface {
	HandleUpdate(ctx context.Context, update *tgbotapi.Update)
}

type Authenticator interface {
	IsAuthorized(chatID int64) bool
}

type TelegramClient interface {
	GetUpdates() tgbotapi.UpdatesChannel
	StopUpdates()
	Send(ctx context.Context, response domain.Response) (int, error)
}

type telegramUpdateListener struct {
	client        TelegramClient
	authenticator Authenticator
	handler       Handler
	poolSize      int
	wg            sync.WaitGroup
}

func NewTelegramUpdateListener(
	client TelegramClient,
	authenticator Authenticator,
	handler Handler,
	poolSize int,
) (*telegramUpdateListener, error) {
	if poolSize < 1 {
		return nil, fmt.Errorf("%w: update listener pool size must be at least 1, got %d", domain.ErrConfiguration, poolSize)
	}

	return &telegramUpdateListener{
		client:        client,
		authenticator: authenticator,
		handler:       handler,
		poolSize:      poolSize,
	}, nil
}

func (t *telegramUpdateListener) Name() string { return "telegram_listener_worker" }

func (t *telegramUpdateListener) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", t.Name(), "poolSize", t.poolSize)
	defer slog.Info("Worker stopped", "name", t.Name())

	updates := t.client.GetUpdates()
	pool := make(chan struct{}, t.poolSize)

	for {
		select {
		case <-ctx.Done():
			t.client.StopUpdates()
			t.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				t.wg.Wait()
				return nil
			}

			select {
			case pool <- struct{}{}:
			case <-ctx.Done():
				continue
			}

			t.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer t.wg.Done()
				defer func() { <-pool }()
				t.processUpdate(ctx, &update)
			}(update)
		}
	}
}

func (t *telegramUpdateListener) processUpdate(ctx context.Context, update *tgbotapi.Update) {
	ctx = logger.ContextWithRequestID(ctx, update.UpdateID)

	if update.Message == nil {
		slog.WarnContext(ctx, "Received unknown update type", "updateID", update.UpdateID)
		return
	}

	chatID := update.Message.Chat.ID
	slog.InfoContext(ctx, "Processing update", "chatID", chatID)

	if !t.authenticator.IsAuthorized(chatID) {
		slog.WarnContext(ctx, "Unauthorized access attempt", "chatID", chatID)
		if _, err := t.client.Send(ctx, domain.Response{ChatID: chatID, Text: unauthorizedText}); err != nil {
			slog.ErrorContext(ctx, "Replying to unauthorized chat", logger.Err(err))
		}
		return
	}

	t.handler.HandleUpdate(ctx, update)
}
