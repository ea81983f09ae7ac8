package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mensabot/internal/model"
	"mensabot/internal/repository"
)

// DefaultHour and DefaultMinute are used when /subscribe has no argument.
const (
	DefaultHour   = 6
	DefaultMinute = 0
)

// SubscriptionStore is the durable side of the scheduler.
type SubscriptionStore interface {
	Insert(ctx context.Context, userID int64, hour, minute int) error
	Delete(ctx context.Context, userID int64) error
	Get(ctx context.Context, userID int64) (*model.Subscription, error)
	ListAll(ctx context.Context) ([]model.Subscription, error)
}

// JobFunc delivers one scheduled message to userID.
type JobFunc func(ctx context.Context, userID int64) error

// SubscriptionService keeps the store and the armed cron entries in step.
// Every mutation holds mu for its whole store+registry sequence.
type SubscriptionService struct {
	mu       sync.RWMutex
	store    SubscriptionStore
	cron     *SchedulerService
	registry *jobRegistry
	job      JobFunc
	loc      *time.Location
	timeout  time.Duration
	log      *zap.Logger

	now func() time.Time
}

// NewSubscriptionService wires the scheduler. loc is the zone subscribers'
// times are given in; timeout bounds a single delivery.
func NewSubscriptionService(store SubscriptionStore, cron *SchedulerService, job JobFunc, loc *time.Location, timeout time.Duration, log *zap.Logger) *SubscriptionService {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SubscriptionService{
		store:    store,
		cron:     cron,
		registry: newJobRegistry(),
		job:      job,
		loc:      loc,
		timeout:  timeout,
		log:      log.Named("subscriptions"),
		now:      time.Now,
	}
}

// Reload arms one job per stored row. Any error is fatal to startup: the
// registry is left empty and ErrStorageUnavailable is returned.
func (s *SubscriptionService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retireAllLocked()

	subs, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	for _, sub := range subs {
		if _, err := s.armLocked(sub.UserID, sub.Hour, sub.Minute); err != nil {
			s.retireAllLocked()
			return fmt.Errorf("%w: row for user %d: %w", ErrStorageUnavailable, sub.UserID, err)
		}
	}
	s.log.Info("subscriptions reloaded", zap.Int("count", s.registry.len()))
	return nil
}

// Subscribe stores and arms a daily weekday delivery at hour:minute local time.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID int64, hour, minute int) error {
	if _, _, err := ToUTC(s.now().In(s.loc), hour, minute); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.get(userID); ok {
		return ErrDuplicateSubscription
	}
	return s.subscribeLocked(ctx, userID, hour, minute)
}

// Unsubscribe retires the user's job and deletes the stored row.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.get(userID); !ok {
		return ErrNotScheduled
	}
	return s.unsubscribeLocked(ctx, userID)
}

// ChangeTime moves an existing subscription to hour:minute. It is
// unsubscribe followed by subscribe under one lock; a failure in the second
// half leaves the user unsubscribed and is reported as an inconsistency.
func (s *SubscriptionService) ChangeTime(ctx context.Context, userID int64, hour, minute int) error {
	if _, _, err := ToUTC(s.now().In(s.loc), hour, minute); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry.get(userID); !ok {
		return ErrNotScheduled
	}
	if err := s.unsubscribeLocked(ctx, userID); err != nil {
		return err
	}
	if err := s.subscribeLocked(ctx, userID, hour, minute); err != nil {
		if errors.Is(err, ErrRegistryInconsistency) {
			return err
		}
		s.critical("change time: old job retired, new one not armed", userID, err)
		return fmt.Errorf("%w: change time for %d: %w", ErrRegistryInconsistency, userID, err)
	}
	return nil
}

// QueryTime returns the user's local send time.
func (s *SubscriptionService) QueryTime(userID int64) (hour, minute int, err error) {
	job, err := s.Job(userID)
	if err != nil {
		return 0, 0, err
	}
	return job.Hour, job.Minute, nil
}

// Job returns the armed job for userID including its next activation.
func (s *SubscriptionService) Job(userID int64) (ScheduledJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.registry.get(userID)
	if !ok {
		return ScheduledJob{}, ErrNotScheduled
	}
	job.Next = s.cron.Next(job.entryID)
	return job, nil
}

// Jobs snapshots every armed job, ordered by user id.
func (s *SubscriptionService) Jobs() []ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := s.registry.all()
	for i := range jobs {
		jobs[i].Next = s.cron.Next(jobs[i].entryID)
	}
	return jobs
}

func (s *SubscriptionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.len()
}

// Trigger runs the user's delivery now, outside the cron schedule.
func (s *SubscriptionService) Trigger(ctx context.Context, userID int64) error {
	s.mu.RLock()
	_, ok := s.registry.get(userID)
	s.mu.RUnlock()
	if !ok {
		return ErrNotScheduled
	}
	return s.fire(ctx, userID, "manual")
}

func (s *SubscriptionService) subscribeLocked(ctx context.Context, userID int64, hour, minute int) error {
	if err := s.store.Insert(ctx, userID, hour, minute); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.critical("stored subscription has no armed job", userID, err)
			return fmt.Errorf("%w: %w: %w", ErrRegistryInconsistency, ErrDuplicateSubscription, err)
		}
		return fmt.Errorf("subscribe %d: %w", userID, err)
	}
	job, err := s.armLocked(userID, hour, minute)
	if err != nil {
		s.critical("subscription stored but not armed", userID, err)
		return fmt.Errorf("%w: arm %d: %w", ErrRegistryInconsistency, userID, err)
	}
	s.log.Info("subscribed",
		zap.Int64("user_id", userID),
		zap.String("local", FormatClock(hour, minute)),
		zap.String("utc", FormatClock(job.UTCHour, job.UTCMinute)),
	)
	return nil
}

func (s *SubscriptionService) unsubscribeLocked(ctx context.Context, userID int64) error {
	job, _ := s.registry.get(userID)
	s.cron.Remove(job.entryID)
	s.registry.remove(userID)

	if err := s.store.Delete(ctx, userID); err != nil {
		s.critical("job retired but stored row not deleted", userID, err)
		return fmt.Errorf("%w: unsubscribe %d: %w", ErrRegistryInconsistency, userID, err)
	}
	s.log.Info("unsubscribed", zap.Int64("user_id", userID))
	return nil
}

// armLocked converts the local time with today's offset and registers the
// cron entry on the UTC days matching local Monday to Friday.
func (s *SubscriptionService) armLocked(userID int64, hour, minute int) (ScheduledJob, error) {
	uh, um, shift, err := ToUTCDay(s.now().In(s.loc), hour, minute)
	if err != nil {
		return ScheduledJob{}, err
	}
	id, err := s.cron.ScheduleWeekdays(uh, um, shift, func() {
		_ = s.fire(context.Background(), userID, "cron")
	})
	if err != nil {
		return ScheduledJob{}, err
	}
	job := ScheduledJob{
		UserID:      userID,
		Hour:        hour,
		Minute:      minute,
		UTCHour:     uh,
		UTCMinute:   um,
		UTCDayShift: shift,
		entryID:     id,
	}
	s.registry.put(job)
	return job, nil
}

func (s *SubscriptionService) retireAllLocked() {
	for _, job := range s.registry.all() {
		s.cron.Remove(job.entryID)
		s.registry.remove(job.UserID)
	}
}

// fire runs one delivery with its own deadline and correlation id.
func (s *SubscriptionService) fire(parent context.Context, userID int64, trigger string) error {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	log := s.log.With(
		zap.Int64("user_id", userID),
		zap.String("run_id", uuid.NewString()),
		zap.String("trigger", trigger),
	)
	start := time.Now()
	if err := s.job(ctx, userID); err != nil {
		log.Error("delivery failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return err
	}
	log.Info("delivery sent", zap.Duration("took", time.Since(start)))
	return nil
}

// critical reports a store/registry disagreement. DPanic is the most severe
// level that does not end the process; development loggers panic on it.
func (s *SubscriptionService) critical(msg string, userID int64, err error) {
	s.log.DPanic(msg,
		zap.Bool("critical", true),
		zap.Int64("user_id", userID),
		zap.Error(err),
	)
}
