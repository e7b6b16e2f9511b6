package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithReminder returns a logger with reminder context fields attached.
// Use this for all logging within a dispatch or response-matching flow.
func WithReminder(medicationID, patientName, slot string) *slog.Logger {
	return slog.With(
		"medication_id", medicationID,
		"patient_name", patientName,
		"slot", slot,
	)
}

// WithInbound returns a logger scoped to one inbound message.
func WithInbound(logger *slog.Logger, contactNumber, channel string) *slog.Logger {
	return logger.With(
		"contact_number", contactNumber,
		"channel", channel,
	)
}
