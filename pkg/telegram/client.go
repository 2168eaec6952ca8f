package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/speech-transcriber-bot/pkg/domain"
	"github.com/dskvich/speech-transcriber-bot/pkg/logger"
)

const updatesTimeout = 60

type client struct {
	token     string
	bot       *tgbotapi.BotAPI
	updatesCh tgbotapi.UpdatesChannel
}

func NewClient(token string) (*client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api instance: %w", err)
	}

	slog.Info("Authorized on telegram", "account", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatesTimeout
	u.AllowedUpdates = []string{"message"}

	return &client{
		token:     token,
		bot:       bot,
		updatesCh: bot.GetUpdatesChan(u),
	}, nil
}

func (c *client) GetUpdates() tgbotapi.UpdatesChannel {
	return c.updatesCh
}

func (c *client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

// Send delivers response and returns the id of the sent or edited message.
func (c *client) Send(ctx context.Context, response domain.Response) (int, error) {
	msg, err := c.bot.Send(toChattable(response))
	if err != nil {
		slog.ErrorContext(ctx, "Sending telegram message", "chatID", response.ChatID, logger.Err(err))
		return 0, fmt.Errorf("sending message: %w", err)
	}
	return msg.MessageID, nil
}

func toChattable(response domain.Response) tgbotapi.Chattable {
	parseMode := ""
	if response.HTML {
		parseMode = tgbotapi.ModeHTML
	}

	switch {
	case response.File != nil:
		doc := tgbotapi.NewDocument(response.ChatID, tgbotapi.FileBytes{
			Name:  response.File.Name,
			Bytes: response.File.Data,
		})
		doc.Caption = response.Text
		doc.ParseMode = parseMode
		return doc
	case response.EditMessageID != 0:
		edit := tgbotapi.NewEditMessageText(response.ChatID, response.EditMessageID, response.Text)
		edit.ParseMode = parseMode
		return edit
	default:
		msg := tgbotapi.NewMessage(response.ChatID, response.Text)
		msg.ParseMode = parseMode
		return msg
	}
}

// DownloadFile streams the file identified by fileID into w.
func (c *client) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return fmt.Errorf("getting file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.token), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.bot.Client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if closeErr := body.Close(); closeErr != nil {
			slog.ErrorContext(ctx, "Closing body", logger.Err(closeErr))
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	return nil
}
