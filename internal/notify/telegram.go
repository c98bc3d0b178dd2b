package notify

import (
	"context"
	"fmt"

	"macro-journal/internal/db"
	"macro-journal/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// LinkStore resolves which Telegram chat, if any, belongs to a user.
type LinkStore interface {
	GetTelegramLink(ctx context.Context, userID string) (*db.TelegramLink, error)
	SaveTelegramLink(ctx context.Context, link *db.TelegramLink) error
}

// TelegramSurface delivers pop-up notifications as Telegram messages.
// Permission maps onto the chat link: granted when a link exists and is
// enabled, denied when the user disabled it, default when no link exists.
type TelegramSurface struct {
	bot    *tgbotapi.BotAPI
	links  LinkStore
	logger *logger.Logger
}

func NewTelegramSurface(token string, links LinkStore, logger *logger.Logger) (*TelegramSurface, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Info("Authorized on Telegram", "username", bot.Self.UserName)

	return &TelegramSurface{
		bot:    bot,
		links:  links,
		logger: logger,
	}, nil
}

func (s *TelegramSurface) Permission(ctx context.Context, userID string) Permission {
	link, err := s.links.GetTelegramLink(ctx, userID)
	if err != nil {
		s.logger.Error("failed to look up telegram link", "user_id", userID, "error", err)
		return PermissionDefault
	}
	switch {
	case link == nil:
		return PermissionDefault
	case link.Enabled:
		return PermissionGranted
	default:
		return PermissionDenied
	}
}

// Request asks the linked chat to opt in. Without a known chat there is
// nobody to ask, so the permission stays default until the user connects
// one through the journal.
func (s *TelegramSurface) Request(ctx context.Context, userID string) (Permission, error) {
	link, err := s.links.GetTelegramLink(ctx, userID)
	if err != nil {
		return PermissionDefault, fmt.Errorf("failed to look up telegram link: %w", err)
	}
	if link == nil {
		return PermissionDefault, nil
	}
	if link.Enabled {
		return PermissionGranted, nil
	}

	msg := tgbotapi.NewMessage(link.ChatID,
		"Daily Macro Journal would like to send you insight notifications. Reply /enable to allow them.")
	if _, err := s.bot.Send(msg); err != nil {
		return PermissionDefault, fmt.Errorf("failed to send opt-in message: %w", err)
	}
	return PermissionDefault, nil
}

// Push sends the pop-up. Failures are logged and swallowed.
func (s *TelegramSurface) Push(ctx context.Context, userID, title, body string) {
	link, err := s.links.GetTelegramLink(ctx, userID)
	if err != nil || link == nil || !link.Enabled {
		return
	}

	msg := tgbotapi.NewMessage(link.ChatID, fmt.Sprintf("%s\n%s", title, body))
	if _, err := s.bot.Send(msg); err != nil {
		s.logger.Error("failed to push telegram notification", "user_id", userID, "error", err)
	}
}
