package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mensabot/internal/service"
)

// Subscriptions is the part of the scheduler the commands use.
type Subscriptions interface {
	Subscribe(ctx context.Context, userID int64, hour, minute int) error
	Unsubscribe(ctx context.Context, userID int64) error
	ChangeTime(ctx context.Context, userID int64, hour, minute int) error
	Job(userID int64) (service.ScheduledJob, error)
	Trigger(ctx context.Context, userID int64) error
}

// Menus renders the plan for a day.
type Menus interface {
	Today() time.Time
	RequestMenu(ctx context.Context, date time.Time, futureQuery bool) (string, error)
}

// Replier sends formatted replies to a chat.
type Replier interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
	SendHTML(ctx context.Context, chatID int64, text string, markup interface{}) error
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Replier
	subs    Subscriptions
	menus   Menus
	loc     *time.Location
	canteen string
	log     *zap.Logger

	wg sync.WaitGroup
}

// New builds the bot. api is only used for polling updates.
func New(api *tgbotapi.BotAPI, sender Replier, subs Subscriptions, menus Menus, loc *time.Location, canteen string, log *zap.Logger) *Bot {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		api:     api,
		sender:  sender,
		subs:    subs,
		menus:   menus,
		loc:     loc,
		canteen: canteen,
		log:     log.Named("bot"),
	}
}

// Start begins polling updates until ctx is cancelled. Each message is
// handled on its own goroutine; Start returns once all of them finished.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates", zap.String("account", b.api.Self.UserName))

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		msg := update.Message
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.handleMessage(ctx, msg); err != nil {
				b.log.Warn("handle message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
			}
		}()
	}

	b.wg.Wait()
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		b.log.Info("command",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()),
		)
		return b.handleCommand(ctx, msg.Chat.ID, canonicalCommand(msg.Command()), msg.CommandArguments())
	}
	if cmd, ok := menuAlias(msg.Text); ok {
		return b.handleCommand(ctx, msg.Chat.ID, cmd, "")
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd, args string) error {
	if days, ok := menuDays[cmd]; ok {
		return b.handleMenu(ctx, chatID, days)
	}
	switch cmd {
	case "start":
		if err := b.sendText(ctx, chatID, helpText(b.canteen)); err != nil {
			return err
		}
		return b.handleSubscribe(ctx, chatID, "")
	case "help":
		return b.sendText(ctx, chatID, helpText(b.canteen))
	case "subscribe":
		return b.handleSubscribe(ctx, chatID, args)
	case "unsubscribe":
		return b.handleUnsubscribe(ctx, chatID)
	case "changetime":
		return b.handleChangeTime(ctx, chatID, args)
	case "when":
		return b.handleWhen(ctx, chatID)
	case "now":
		return b.handleNow(ctx, chatID)
	default:
		return b.sendText(ctx, chatID, textUnknownCommand)
	}
}

// handleMenu shows the plan for today plus days. Asking for a later day
// counts as a future query, so a weekend shift is not annotated.
func (b *Bot) handleMenu(ctx context.Context, chatID int64, days int) error {
	date := b.menus.Today().AddDate(0, 0, days)
	text, err := b.menus.RequestMenu(ctx, date, days > 0)
	if err != nil {
		b.log.Warn("menu request failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return b.sendText(ctx, chatID, errorText(err))
	}
	return b.sender.SendMarkdown(ctx, chatID, text)
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID int64, args string) error {
	hour, minute, _, err := parseClockArg(args)
	if err != nil {
		return b.sendText(ctx, chatID, textBadTime)
	}
	if err := b.subs.Subscribe(ctx, chatID, hour, minute); err != nil {
		return b.replyError(ctx, chatID, "subscribe", err)
	}
	return b.sendText(ctx, chatID, subscribedText(hour, minute))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64) error {
	if err := b.subs.Unsubscribe(ctx, chatID); err != nil {
		return b.replyError(ctx, chatID, "unsubscribe", err)
	}
	return b.sendText(ctx, chatID, textUnsubscribed)
}

func (b *Bot) handleChangeTime(ctx context.Context, chatID int64, args string) error {
	hour, minute, given, err := parseClockArg(args)
	if !given {
		return b.sendText(ctx, chatID, textMissingTime)
	}
	if err != nil {
		return b.sendText(ctx, chatID, textBadTime)
	}
	if err := b.subs.ChangeTime(ctx, chatID, hour, minute); err != nil {
		return b.replyError(ctx, chatID, "change time", err)
	}
	return b.sendText(ctx, chatID, changedText(hour, minute))
}

func (b *Bot) handleWhen(ctx context.Context, chatID int64) error {
	job, err := b.subs.Job(chatID)
	if err != nil {
		return b.replyError(ctx, chatID, "when", err)
	}
	return b.sendText(ctx, chatID, whenText(job, b.loc))
}

func (b *Bot) handleNow(ctx context.Context, chatID int64) error {
	if err := b.subs.Trigger(ctx, chatID); err != nil {
		return b.replyError(ctx, chatID, "trigger", err)
	}
	return nil
}

// replyError tells the user what went wrong. Expected outcomes such as a
// duplicate subscription are not logged.
func (b *Bot) replyError(ctx context.Context, chatID int64, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrRegistryInconsistency):
		// already logged as critical by the service
	case errors.Is(err, service.ErrDuplicateSubscription),
		errors.Is(err, service.ErrNotScheduled),
		errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrInvalidTimeFormat):
	default:
		b.log.Error(op+" failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return b.sendText(ctx, chatID, errorText(err))
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	return b.sender.SendHTML(ctx, chatID, text, mainMenuKeyboard())
}
