package jobs

import (
	"context"
	"time"

	"medtracker/internal/services"
)

// ReminderCheck is the periodic due-slot check. The interval must be at
// most one minute: slot matching is on exact HH:MM labels, so a minute with
// no tick silently drops that slot for the day.
type ReminderCheck struct {
	reminders *services.ReminderService
	interval  time.Duration
}

// NewReminderCheck creates the reminder tick job
func NewReminderCheck(reminders *services.ReminderService, interval time.Duration) *ReminderCheck {
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	return &ReminderCheck{
		reminders: reminders,
		interval:  interval,
	}
}

// Run executes one tick against the current wall clock
func (j *ReminderCheck) Run(ctx context.Context) error {
	return j.reminders.CheckAndSend(ctx, time.Now())
}

// Interval returns how often the tick fires
func (j *ReminderCheck) Interval() time.Duration {
	return j.interval
}
