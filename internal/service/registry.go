package service

import (
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduledJob describes one armed delivery. Hour and Minute are the
// subscriber's local time as stored; UTCHour and UTCMinute are what the cron
// entry actually uses, on local weekdays moved by UTCDayShift days.
type ScheduledJob struct {
	UserID      int64
	Hour        int
	Minute      int
	UTCHour     int
	UTCMinute   int
	UTCDayShift int
	Next        time.Time

	entryID cron.EntryID
}

// jobRegistry maps user ids to their armed cron entries. Callers serialize
// access.
type jobRegistry struct {
	jobs map[int64]ScheduledJob
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[int64]ScheduledJob)}
}

func (r *jobRegistry) get(userID int64) (ScheduledJob, bool) {
	job, ok := r.jobs[userID]
	return job, ok
}

func (r *jobRegistry) put(job ScheduledJob) {
	r.jobs[job.UserID] = job
}

func (r *jobRegistry) remove(userID int64) {
	delete(r.jobs, userID)
}

func (r *jobRegistry) len() int {
	return len(r.jobs)
}

// all returns the jobs ordered by user id.
func (r *jobRegistry) all() []ScheduledJob {
	out := make([]ScheduledJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
