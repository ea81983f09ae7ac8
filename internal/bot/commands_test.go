package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mensabot/internal/mensa"
	"mensabot/internal/service"
)

type reply struct {
	chatID   int64
	text     string
	markdown bool
}

type fakeReplier struct {
	sent []reply
}

func (f *fakeReplier) SendMarkdown(_ context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, reply{chatID: chatID, text: text, markdown: true})
	return nil
}

func (f *fakeReplier) SendHTML(_ context.Context, chatID int64, text string, _ interface{}) error {
	f.sent = append(f.sent, reply{chatID: chatID, text: text})
	return nil
}

type fakeSubs struct {
	calls []string
	err   error
	job   service.ScheduledJob
}

func (f *fakeSubs) Subscribe(_ context.Context, userID int64, hour, minute int) error {
	f.calls = append(f.calls, fmt.Sprintf("subscribe %d %s", userID, service.FormatClock(hour, minute)))
	return f.err
}

func (f *fakeSubs) Unsubscribe(_ context.Context, userID int64) error {
	f.calls = append(f.calls, fmt.Sprintf("unsubscribe %d", userID))
	return f.err
}

func (f *fakeSubs) ChangeTime(_ context.Context, userID int64, hour, minute int) error {
	f.calls = append(f.calls, fmt.Sprintf("changetime %d %s", userID, service.FormatClock(hour, minute)))
	return f.err
}

func (f *fakeSubs) Job(userID int64) (service.ScheduledJob, error) {
	f.calls = append(f.calls, fmt.Sprintf("job %d", userID))
	return f.job, f.err
}

func (f *fakeSubs) Trigger(_ context.Context, userID int64) error {
	f.calls = append(f.calls, fmt.Sprintf("trigger %d", userID))
	return f.err
}

type fakeMenus struct {
	today  time.Time
	text   string
	err    error
	calls  int
	date   time.Time
	future bool
}

func (f *fakeMenus) Today() time.Time { return f.today }

func (f *fakeMenus) RequestMenu(_ context.Context, date time.Time, futureQuery bool) (string, error) {
	f.calls++
	f.date = date
	f.future = futureQuery
	return f.text, f.err
}

const testChat = 100

var testToday = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)

func newTestBot(subs *fakeSubs, menus *fakeMenus) (*Bot, *fakeReplier) {
	rep := &fakeReplier{}
	return New(nil, rep, subs, menus, time.UTC, "Mensa am Park", zap.NewNop()), rep
}

// commandMessage builds an update message the way Telegram delivers a
// command: the leading /word is marked as a bot_command entity.
func commandMessage(text string) *tgbotapi.Message {
	word := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: testChat},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(word)}},
	}
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: testChat}}
}

func TestMenuCommands(t *testing.T) {
	tests := []struct {
		msg        *tgbotapi.Message
		wantDays   int
		wantFuture bool
	}{
		{commandMessage("/today"), 0, false},
		{commandMessage("/heute"), 0, false},
		{commandMessage("/tomorrow"), 1, true},
		{commandMessage("/morgen"), 1, true},
		{commandMessage("/overmorrow"), 2, true},
		{commandMessage("/uebermorgen"), 2, true},
		{commandMessage("/ubermorgen"), 2, true},
		{commandMessage("/Heute@mensa_bot"), 0, false},
		{textMessage(menuLabelToday), 0, false},
		{textMessage(menuLabelTomorrow), 1, true},
		{textMessage(menuLabelOvermorrow), 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.msg.Text, func(t *testing.T) {
			menus := &fakeMenus{today: testToday, text: "*menu*"}
			b, rep := newTestBot(&fakeSubs{}, menus)

			if err := b.handleMessage(context.Background(), tt.msg); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if menus.calls != 1 {
				t.Fatalf("menu requested %d times", menus.calls)
			}
			if want := testToday.AddDate(0, 0, tt.wantDays); !menus.date.Equal(want) {
				t.Errorf("date = %s, want %s", menus.date.Format(mensa.DateLayout), want.Format(mensa.DateLayout))
			}
			if menus.future != tt.wantFuture {
				t.Errorf("futureQuery = %v, want %v", menus.future, tt.wantFuture)
			}
			if len(rep.sent) != 1 || rep.sent[0] != (reply{chatID: testChat, text: "*menu*", markdown: true}) {
				t.Errorf("replies = %+v", rep.sent)
			}
		})
	}
}

func TestMenuFetchFailure(t *testing.T) {
	menus := &fakeMenus{today: testToday, err: fmt.Errorf("%w: status 503", mensa.ErrFetch)}
	b, rep := newTestBot(&fakeSubs{}, menus)

	if err := b.handleMessage(context.Background(), commandMessage("/today")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rep.sent) != 1 || rep.sent[0].text != textFetchFailed || rep.sent[0].markdown {
		t.Errorf("replies = %+v", rep.sent)
	}
}

func TestStartSubscribesAtDefaultTime(t *testing.T) {
	subs := &fakeSubs{}
	b, rep := newTestBot(subs, &fakeMenus{})

	if err := b.handleMessage(context.Background(), commandMessage("/start")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(subs.calls) != 1 || subs.calls[0] != "subscribe 100 06:00" {
		t.Errorf("calls = %v", subs.calls)
	}
	if len(rep.sent) != 2 {
		t.Fatalf("expected help and confirmation, got %+v", rep.sent)
	}
	if rep.sent[0].text != helpText("Mensa am Park") {
		t.Errorf("first reply = %q", rep.sent[0].text)
	}
	if rep.sent[1].text != subscribedText(service.DefaultHour, service.DefaultMinute) {
		t.Errorf("second reply = %q", rep.sent[1].text)
	}
}

func TestSubscriptionCommands(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		subsErr   error
		wantCalls []string
		wantReply string
	}{
		{"subscribe default", "/subscribe", nil, []string{"subscribe 100 06:00"}, subscribedText(6, 0)},
		{"subscribe at time", "/subscribe 7:30", nil, []string{"subscribe 100 07:30"}, subscribedText(7, 30)},
		{"subscribe bad time", "/subscribe 7.30", nil, nil, textBadTime},
		{"subscribe twice", "/subscribe 8:00", service.ErrDuplicateSubscription, []string{"subscribe 100 08:00"}, errorText(service.ErrDuplicateSubscription)},
		{"subscribe inconsistent", "/subscribe", fmt.Errorf("%w: arm", service.ErrRegistryInconsistency), []string{"subscribe 100 06:00"}, textOperator},
		{"changetime", "/changetime 8:15", nil, []string{"changetime 100 08:15"}, changedText(8, 15)},
		{"changetime without time", "/changetime", nil, nil, textMissingTime},
		{"changetime bad time", "/changetime 24:00", nil, nil, textBadTime},
		{"changetime not subscribed", "/changetime 9:00", service.ErrNotScheduled, []string{"changetime 100 09:00"}, textNotSubscribed},
		{"unsubscribe", "/unsubscribe", nil, []string{"unsubscribe 100"}, textUnsubscribed},
		{"unsubscribe not subscribed", "/unsubscribe", service.ErrNotScheduled, []string{"unsubscribe 100"}, textNotSubscribed},
		{"now not subscribed", "/now", service.ErrNotScheduled, []string{"trigger 100"}, textNotSubscribed},
		{"unknown", "/frobnicate", nil, nil, textUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &fakeSubs{err: tt.subsErr}
			b, rep := newTestBot(subs, &fakeMenus{})

			if err := b.handleMessage(context.Background(), commandMessage(tt.text)); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if strings.Join(subs.calls, ",") != strings.Join(tt.wantCalls, ",") {
				t.Errorf("calls = %v, want %v", subs.calls, tt.wantCalls)
			}
			if len(rep.sent) != 1 || rep.sent[0].text != tt.wantReply {
				t.Errorf("replies = %+v, want %q", rep.sent, tt.wantReply)
			}
		})
	}
}

func TestNowSendsNothingItself(t *testing.T) {
	subs := &fakeSubs{}
	b, rep := newTestBot(subs, &fakeMenus{})

	if err := b.handleMessage(context.Background(), commandMessage("/now")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(subs.calls) != 1 || subs.calls[0] != "trigger 100" {
		t.Errorf("calls = %v", subs.calls)
	}
	if len(rep.sent) != 0 {
		t.Errorf("the delivery job replies, not the handler: %+v", rep.sent)
	}
}

func TestWhenCommand(t *testing.T) {
	job := service.ScheduledJob{
		UserID: testChat, Hour: 6, Minute: 0, UTCHour: 6, UTCMinute: 0,
		Next: time.Date(2024, time.January, 9, 6, 0, 0, 0, time.UTC),
	}
	subs := &fakeSubs{job: job}
	b, rep := newTestBot(subs, &fakeMenus{})

	if err := b.handleMessage(context.Background(), textMessage(menuLabelWhen)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rep.sent) != 1 || rep.sent[0].text != whenText(job, time.UTC) {
		t.Errorf("replies = %+v", rep.sent)
	}
}

func TestFreeTextIsIgnored(t *testing.T) {
	subs := &fakeSubs{}
	menus := &fakeMenus{}
	b, rep := newTestBot(subs, menus)

	if err := b.handleMessage(context.Background(), textMessage("hello there")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rep.sent) != 0 || len(subs.calls) != 0 || menus.calls != 0 {
		t.Errorf("free text caused replies %+v calls %v menus %d", rep.sent, subs.calls, menus.calls)
	}
}
