package services

import (
	"context"
	"errors"
	"time"

	"medtracker/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Boundary contracts between the reminder engine components. The Mongo-backed
// implementations live in this package; tests substitute in-memory fakes.

var (
	// ErrAlreadyResolved is returned when a status transition finds the
	// entry no longer pending. A second reply must never double-apply.
	ErrAlreadyResolved = errors.New("reminder log entry already resolved")

	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("not found")
)

// ScheduleStore reads medication definitions for the tick evaluator and the
// adherence aggregator.
type ScheduleStore interface {
	// FindDueMedications returns every medication whose slot set contains
	// the given HH:MM label, regardless of validity window.
	FindDueMedications(ctx context.Context, slot string) ([]models.Medication, error)
	// FindActiveMedications returns medications for a patient whose start
	// date is not in the future. Patient match is case-insensitive exact;
	// userID filters exactly when non-empty.
	FindActiveMedications(ctx context.Context, patientName, userID string) ([]models.Medication, error)
}

// ReminderLogRepo owns reminder log entries.
type ReminderLogRepo interface {
	// InsertIfAbsent writes the entry unless one already exists for the
	// same (medication, slot, calendar day). Returns false on duplicate.
	InsertIfAbsent(ctx context.Context, entry *models.ReminderLog) (bool, error)
	// FindPending returns pending entries for any of the candidate
	// addresses dispatched at or after since, newest first.
	FindPending(ctx context.Context, addresses []string, since time.Time) ([]models.ReminderLog, error)
	// TransitionStatus conditionally moves a pending entry to newStatus,
	// recording the response. Returns ErrAlreadyResolved if the entry is
	// no longer pending.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, newStatus, responseMessage string, at time.Time) error
	// FindByPatientAndWindow returns entries dispatched within [from, to].
	FindByPatientAndWindow(ctx context.Context, patientName, userID string, from, to time.Time) ([]models.ReminderLog, error)
	// FindToday returns entries dispatched within [dayStart, dayEnd),
	// sorted by dispatch instant ascending.
	FindToday(ctx context.Context, patientName, userID string, dayStart, dayEnd time.Time) ([]models.ReminderLog, error)
}

// ConfirmationRepo owns confirmation records.
type ConfirmationRepo interface {
	Append(ctx context.Context, confirmation *models.Confirmation) error
	Recent(ctx context.Context, patientName, userID string, limit int) ([]models.Confirmation, error)
}

// NotificationSender delivers one message on one channel, best effort. A
// failure on one channel never blocks the other.
type NotificationSender interface {
	Send(ctx context.Context, to, body, channel string) error
}
