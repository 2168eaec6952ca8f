package auth

import (
	"log/slog"
	"slices"
)

type authenticator struct {
	allowedChatIDs []int64
}

func NewAuthenticator(allowedChatIDs []int64) *authenticator {
	slog.Info("Telegram allowed chat IDs", "chat_ids", allowedChatIDs)

	return &authenticator{
		allowedChatIDs: allowedChatIDs,
	}
}

func (a *authenticator) IsAuthorized(chatID int64) bool {
	return slices.Contains(a.allowedChatIDs, chatID)
}
