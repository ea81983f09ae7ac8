package bot

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mensabot/internal/mensa"
	"mensabot/internal/service"
)

const (
	menuLabelToday      = "🍽 Today"
	menuLabelTomorrow   = "➡️ Tomorrow"
	menuLabelOvermorrow = "⏩ Overmorrow"
	menuLabelWhen       = "⏰ My time"
)

func helpText(canteen string) string {
	return "<b>Mensa " + escape(canteen) + ", every weekday morning.</b>\n\n" +
		"• /subscribe [HH:MM] — daily menu on weekdays (default 06:00)\n" +
		"• /unsubscribe — stop the daily menu\n" +
		"• /changetime HH:MM — move your delivery time\n" +
		"• /when — show your delivery time\n" +
		"• /now — send your daily message right away\n" +
		"• /today, /tomorrow, /overmorrow — show a menu now\n\n" +
		"If the requested day is a Saturday or Sunday, Monday's plan is shown."
}

const (
	textUnknownCommand = "Unknown command. See /help."
	textNotSubscribed  = "You are not subscribed. Use /subscribe [HH:MM] to start."
	textBadTime        = "Please give the time as HH:MM, for example <code>/subscribe 6:30</code>."
	textMissingTime    = "Which time? Example: <code>/changetime 7:15</code>."
	textOperator       = "⚠️ Something went wrong while saving your subscription. Please contact the operator."
	textStorage        = "Could not save your subscription right now, please try again later."
	textFetchFailed    = "The canteen website could not be reached, please try again later."
	textUnsubscribed   = "🔕 Unsubscribed. You will not get the daily menu any more."
)

// commandAliases maps German command names to their English equivalents.
var commandAliases = map[string]string{
	"heute":       "today",
	"morgen":      "tomorrow",
	"uebermorgen": "overmorrow",
	"ubermorgen":  "overmorrow",
}

// menuDays maps the menu commands to a day offset from today.
var menuDays = map[string]int{
	"today":      0,
	"tomorrow":   1,
	"overmorrow": 2,
}

func canonicalCommand(cmd string) string {
	cmd = strings.ToLower(cmd)
	if alias, ok := commandAliases[cmd]; ok {
		return alias
	}
	return cmd
}

// menuAlias maps reply-keyboard labels to commands.
func menuAlias(text string) (string, bool) {
	switch strings.TrimSpace(text) {
	case menuLabelToday:
		return "today", true
	case menuLabelTomorrow:
		return "tomorrow", true
	case menuLabelOvermorrow:
		return "overmorrow", true
	case menuLabelWhen:
		return "when", true
	default:
		return "", false
	}
}

// parseClockArg reads an optional HH:MM argument. given is false when args
// is empty, in which case the default time is returned.
func parseClockArg(args string) (hour, minute int, given bool, err error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return service.DefaultHour, service.DefaultMinute, false, nil
	}
	hour, minute, err = service.ParseClock(fields[0])
	return hour, minute, true, err
}

func subscribedText(hour, minute int) string {
	return fmt.Sprintf("✅ Subscribed. You will get the menu every weekday at <b>%s</b>.\n"+
		"Change it with /changetime HH:MM.", service.FormatClock(hour, minute))
}

func changedText(hour, minute int) string {
	return fmt.Sprintf("✅ Your daily menu now arrives at <b>%s</b>.", service.FormatClock(hour, minute))
}

func whenText(job service.ScheduledJob, loc *time.Location) string {
	text := fmt.Sprintf("⏰ Your menu arrives every weekday at <b>%s</b> (%s UTC).",
		service.FormatClock(job.Hour, job.Minute), service.FormatClock(job.UTCHour, job.UTCMinute))
	if !job.Next.IsZero() {
		next := job.Next.In(loc)
		text += fmt.Sprintf("\nNext delivery: %s, %s %s.",
			next.Weekday(), next.Format(mensa.DateLayout), next.Format("15:04"))
	}
	return text
}

// errorText turns a service or fetch error into a user-facing reply.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrRegistryInconsistency):
		return textOperator
	case errors.Is(err, service.ErrDuplicateSubscription):
		return "You are already subscribed. Use /changetime HH:MM to pick another time."
	case errors.Is(err, service.ErrNotScheduled):
		return textNotSubscribed
	case errors.Is(err, service.ErrInvalidTimeFormat), errors.Is(err, service.ErrInvalidTime):
		return textBadTime
	case errors.Is(err, mensa.ErrFetch):
		return textFetchFailed
	default:
		return textStorage
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelTomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelOvermorrow),
			tgbotapi.NewKeyboardButton(menuLabelWhen),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
