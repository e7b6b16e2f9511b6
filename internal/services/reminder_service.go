package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medtracker/internal/logging"
	"medtracker/internal/models"
)

// ReminderService runs the periodic due-slot check and dispatches reminders.
// One medication's failure never blocks the rest of the tick.
type ReminderService struct {
	schedules     ScheduleStore
	logs          ReminderLogRepo
	sender        NotificationSender
	metrics       *Metrics
	loc           *time.Location
	notifyTimeout time.Duration
}

// NewReminderService creates a new reminder service
func NewReminderService(
	schedules ScheduleStore,
	logs ReminderLogRepo,
	sender NotificationSender,
	metrics *Metrics,
	loc *time.Location,
	notifyTimeout time.Duration,
) *ReminderService {
	return &ReminderService{
		schedules:     schedules,
		logs:          logs,
		sender:        sender,
		metrics:       metrics,
		loc:           loc,
		notifyTimeout: notifyTimeout,
	}
}

// CheckAndSend evaluates which (medication, slot) pairs are due at now and
// dispatches each one. Zero matches is the common case and not an error.
func (s *ReminderService) CheckAndSend(ctx context.Context, now time.Time) error {
	slot := now.In(s.loc).Format("15:04")

	meds, err := s.schedules.FindDueMedications(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to find due medications for slot %s: %w", slot, err)
	}

	for i := range meds {
		med := &meds[i]
		if !med.DueOn(now, s.loc) {
			// Not started yet or window elapsed: skip, never retried,
			// never marked missed.
			continue
		}
		if _, err := s.Dispatch(ctx, med, slot, now); err != nil {
			logging.WithReminder(med.ID.Hex(), med.PatientName, slot).
				Error("dispatch failed", "error", err)
		}
	}
	return nil
}

// Dispatch creates the pending log entry for one (medication, slot, day) and
// sends the reminder on both channels, best effort. The log write comes
// first and is never undone by a send failure. Returns nil without error
// when an entry for the slot and day already exists.
func (s *ReminderService) Dispatch(ctx context.Context, med *models.Medication, slot string, now time.Time) (*models.ReminderLog, error) {
	entry := &models.ReminderLog{
		MedicationID:  med.ID.Hex(),
		PatientName:   med.PatientName,
		ContactNumber: med.ContactNumber,
		ScheduledTime: slot,
		SentTime:      now,
		UserID:        med.UserID,
	}

	inserted, err := s.logs.InsertIfAbsent(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		s.metrics.IncDuplicate()
		logging.WithReminder(entry.MedicationID, entry.PatientName, slot).
			Debug("reminder already dispatched for this slot today, skipping")
		return nil, nil
	}

	body := BuildReminderMessage(med, slot)
	for _, channel := range []string{models.ChannelSMS, models.ChannelWhatsApp} {
		sendCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
		err := s.sender.Send(sendCtx, med.ContactNumber, body, channel)
		cancel()
		if err != nil {
			s.metrics.IncSendFailure(channel)
			slog.Warn("notification send failed",
				"channel", channel,
				"contact_number", med.ContactNumber,
				"medication_id", entry.MedicationID,
				"error", err,
			)
		}
	}

	s.metrics.IncDispatched()
	logging.WithReminder(entry.MedicationID, entry.PatientName, slot).
		Info("reminder dispatched", "log_id", entry.ID.Hex())
	return entry, nil
}

// BuildReminderMessage renders the outbound reminder text: the pre-rendered
// prescription message when present, otherwise the default format, always
// followed by the confirmation request.
func BuildReminderMessage(med *models.Medication, slot string) string {
	const confirmSuffix = "\n\nPlease reply 'YES' if you've taken your medicine or 'NO' if you missed it."

	if med.Message != "" {
		return fmt.Sprintf("Hello %s, %s%s", med.PatientName, med.Message, confirmSuffix)
	}
	return fmt.Sprintf("Hello %s, it's %s. Please take your %s (%s).%s",
		med.PatientName, slot, med.Name, med.Dosage, confirmSuffix)
}
