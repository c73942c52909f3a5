// Package telegram delivers one-off alert messages to a chat.
package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends messages to a single configured chat.
type Notifier interface {
	Send(text string) error
}

// BotNotifier delivers messages through the Telegram Bot API.
type BotNotifier struct {
	token  string
	chatID int64
}

// NewBotNotifier creates a notifier for the given bot token and chat.
func NewBotNotifier(token string, chatID int64) *BotNotifier {
	return &BotNotifier{token: strings.TrimSpace(token), chatID: chatID}
}

// Send delivers one message. The bot session is created per call; alerts are
// rare enough that holding a connection open is not worth it.
func (n *BotNotifier) Send(text string) error {
	if n.token == "" || n.chatID == 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(n.token)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	_, err = bot.Send(msg)
	return err
}
