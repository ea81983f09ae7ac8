package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
}

// NewSchedulerService builds a cron engine evaluating specs in loc. Panics in
// jobs are recovered and reported through logger.
func NewSchedulerService(loc *time.Location, logger cron.Logger) *SchedulerService {
	if logger == nil {
		logger = cron.DiscardLogger
	}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
	}
}

// ScheduleWeekdays registers job to run at hour:minute in the scheduler's
// location on the days that are Monday to Friday for the subscriber.
// dayShift is the calendar-day difference from the subscriber's day to the
// scheduler's day (see ToUTCDay): -1 arms Sunday to Thursday, +1 Tuesday to
// Saturday.
func (s *SchedulerService) ScheduleWeekdays(hour, minute, dayShift int, job func()) (cron.EntryID, error) {
	spec, err := buildWeekdaySpec(hour, minute, dayShift)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// Remove retires an entry; it will not be started again. A run that is
// already in progress is not interrupted.
func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Next reports the next activation of id, zero if unknown or not started.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildWeekdaySpec(hour, minute, dayShift int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %d", hour)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %d", minute)
	}
	var days string
	switch dayShift {
	case -1:
		days = "0-4"
	case 0:
		days = "1-5"
	case 1:
		days = "2-6"
	default:
		return "", fmt.Errorf("invalid day shift %d", dayShift)
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * %s", minute, hour, days), nil
}
