package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// messageAPI is the part of *tgbotapi.BotAPI the sender needs.
type messageAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender pushes messages to Telegram through a shared rate limiter, so
// scheduled bursts stay under the API's global limit.
type Sender struct {
	api     messageAPI
	limiter *rate.Limiter
}

func NewSender(api messageAPI, perSecond int) *Sender {
	if perSecond <= 0 {
		perSecond = 25
	}
	return &Sender{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// SendMarkdown sends text that is already MarkdownV2-escaped.
func (s *Sender) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, chatID, text, tgbotapi.ModeMarkdownV2, nil)
}

// SendHTML sends an HTML reply; markup may be nil.
func (s *Sender) SendHTML(ctx context.Context, chatID int64, text string, markup interface{}) error {
	return s.send(ctx, chatID, text, tgbotapi.ModeHTML, markup)
}

func (s *Sender) send(ctx context.Context, chatID int64, text, mode string, markup interface{}) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = mode
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}
