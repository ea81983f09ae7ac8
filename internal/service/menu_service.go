package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"mensabot/internal/mensa"
)

// MenuFetcher returns the validated plan for a weekday.
type MenuFetcher interface {
	FetchMenu(ctx context.Context, date time.Time) (*mensa.Menu, error)
}

// Sender delivers a MarkdownV2 message to a chat.
type Sender interface {
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

type MenuService struct {
	fetcher MenuFetcher
	loc     *time.Location
	log     *zap.Logger

	now func() time.Time
}

func NewMenuService(fetcher MenuFetcher, loc *time.Location, log *zap.Logger) *MenuService {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MenuService{fetcher: fetcher, loc: loc, log: log.Named("menu"), now: time.Now}
}

// Today is the current calendar day in the operator's zone.
func (s *MenuService) Today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// RequestMenu renders the plan for date, moving weekends to Monday. A
// missing plan is rendered as a regular message; only fetch failures are
// returned as errors.
func (s *MenuService) RequestMenu(ctx context.Context, date time.Time, futureQuery bool) (string, error) {
	effective, shift := mensa.EffectiveDate(date)
	view := mensa.View{Date: effective, Shift: shift, FutureQuery: futureQuery}

	menu, err := s.fetcher.FetchMenu(ctx, effective)
	switch {
	case err == nil:
		view.Menu = menu
	case errors.Is(err, mensa.ErrNoPlanAvailable):
		s.log.Debug("no plan", zap.Time("date", effective), zap.Error(err))
	default:
		return "", err
	}
	return mensa.Render(view), nil
}

// DailyJob is the scheduled delivery: today's plan sent to the subscriber.
func (s *MenuService) DailyJob(sender Sender) JobFunc {
	return func(ctx context.Context, userID int64) error {
		text, err := s.RequestMenu(ctx, s.Today(), false)
		if err != nil {
			return err
		}
		return sender.SendMarkdown(ctx, userID, text)
	}
}
