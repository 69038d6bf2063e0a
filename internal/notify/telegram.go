package notify

import (
	"context"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sendTimeout bounds every Bot API call; a hung gateway must not stall the
// scheduler loop.
const sendTimeout = 5 * time.Second

// Telegram sends signal messages to a single chat via the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier and verifies the token with getMe.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{
		Timeout: sendTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[telegram] authorized as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) Handle {
	return t.send(ctx, text, 0)
}

func (t *Telegram) SendReply(ctx context.Context, text string, replyTo Handle) Handle {
	return t.send(ctx, text, replyTo)
}

func (t *Telegram) send(ctx context.Context, text string, replyTo Handle) Handle {
	if ctx.Err() != nil {
		return 0
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = int(replyTo)
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		log.Printf("[telegram] send failed: %v", err)
		return 0
	}
	return Handle(sent.MessageID)
}
