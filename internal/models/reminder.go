package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reminder log entry statuses. An entry is created pending and transitions
// exactly once to taken or missed; there is no transition back.
const (
	StatusPending = "pending"
	StatusTaken   = "taken"
	StatusMissed  = "missed"
)

// Notification channels
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// ReminderLog is one attempt to notify for one (medication, slot, day).
// At most one entry exists per (medication_id, scheduled_time, calendar day).
type ReminderLog struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MedicationID     string             `bson:"medication_id" json:"medication_id"`
	PatientName      string             `bson:"patient_name" json:"patient_name"`
	ContactNumber    string             `bson:"contact_number" json:"contact_number"` // as dispatched, unnormalized
	ScheduledTime    string             `bson:"scheduled_time" json:"scheduled_time"` // HH:MM slot label
	SentTime         time.Time          `bson:"sent_time" json:"sent_time"`
	Status           string             `bson:"status" json:"status"`
	ResponseReceived bool               `bson:"response_received" json:"response_received"`
	ResponseTime     *time.Time         `bson:"response_time,omitempty" json:"response_time,omitempty"`
	ResponseMessage  string             `bson:"response_message,omitempty" json:"response_message,omitempty"`
	UserID           string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

// Confirmation is the durable record of a resolved response, decoupled from
// the log entry for audit and query purposes. Created exactly once per
// resolved entry, never mutated.
type Confirmation struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MedicationID     string             `bson:"medication_id" json:"medication_id"`
	PatientName      string             `bson:"patient_name" json:"patient_name"`
	ContactNumber    string             `bson:"contact_number" json:"contact_number"` // normalized
	ScheduledTime    string             `bson:"scheduled_time" json:"scheduled_time"`
	ConfirmationTime time.Time          `bson:"confirmation_time" json:"confirmation_time"`
	IsTaken          bool               `bson:"is_taken" json:"is_taken"`
	ResponseMessage  string             `bson:"response_message" json:"response_message"`
	LogID            string             `bson:"log_id" json:"log_id"`
	UserID           string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
}

// ReminderLogRow is the API representation of a log entry. Synthesized rows
// (slots due today that have not fired yet) share this shape with a
// placeholder id and no dispatch metadata.
type ReminderLogRow struct {
	ID               string     `json:"_id"`
	MedicationID     string     `json:"medication_id"`
	PatientName      string     `json:"patient_name"`
	ContactNumber    string     `json:"contact_number"`
	ScheduledTime    string     `json:"scheduled_time"`
	SentTime         *time.Time `json:"sent_time"`
	Status           string     `json:"status"`
	ResponseReceived bool       `json:"response_received"`
	ResponseTime     *time.Time `json:"response_time"`
	ResponseMessage  string     `json:"response_message"`
	UserID           string     `json:"user_id,omitempty"`
}

// ToRow converts a ReminderLog to its API row form.
func (l *ReminderLog) ToRow() ReminderLogRow {
	sent := l.SentTime
	return ReminderLogRow{
		ID:               l.ID.Hex(),
		MedicationID:     l.MedicationID,
		PatientName:      l.PatientName,
		ContactNumber:    l.ContactNumber,
		ScheduledTime:    l.ScheduledTime,
		SentTime:         &sent,
		Status:           l.Status,
		ResponseReceived: l.ResponseReceived,
		ResponseTime:     l.ResponseTime,
		ResponseMessage:  l.ResponseMessage,
		UserID:           l.UserID,
	}
}

// SynthesizedPendingRow builds the placeholder row for an (active medication,
// slot) pair that has no log entry yet today.
func SynthesizedPendingRow(medicationID, patientName, slot string) ReminderLogRow {
	return ReminderLogRow{
		ID:            fmt.Sprintf("pending_%s_%s", medicationID, slot),
		MedicationID:  medicationID,
		PatientName:   patientName,
		ScheduledTime: slot,
		Status:        StatusPending,
	}
}

// ConfirmationResponse is the API representation of a confirmation.
type ConfirmationResponse struct {
	ID               string    `json:"_id"`
	MedicationID     string    `json:"medication_id"`
	PatientName      string    `json:"patient_name"`
	ContactNumber    string    `json:"contact_number"`
	ScheduledTime    string    `json:"scheduled_time"`
	ConfirmationTime time.Time `json:"confirmation_time"`
	IsTaken          bool      `json:"is_taken"`
	ResponseMessage  string    `json:"response_message"`
	LogID            string    `json:"log_id"`
	UserID           string    `json:"user_id,omitempty"`
}

// ToResponse converts a Confirmation to ConfirmationResponse
func (c *Confirmation) ToResponse() *ConfirmationResponse {
	return &ConfirmationResponse{
		ID:               c.ID.Hex(),
		MedicationID:     c.MedicationID,
		PatientName:      c.PatientName,
		ContactNumber:    c.ContactNumber,
		ScheduledTime:    c.ScheduledTime,
		ConfirmationTime: c.ConfirmationTime,
		IsTaken:          c.IsTaken,
		ResponseMessage:  c.ResponseMessage,
		LogID:            c.LogID,
		UserID:           c.UserID,
	}
}

// AdherenceReport summarizes reminder outcomes over a trailing period.
type AdherenceReport struct {
	PatientName    string           `json:"patient_name"`
	PeriodDays     int              `json:"period_days"`
	TotalReminders int              `json:"total_reminders"`
	Taken          int              `json:"taken"`
	Missed         int              `json:"missed"`
	Pending        int              `json:"pending"`
	AdherenceRate  float64          `json:"adherence_rate"` // taken/total*100, 2 decimals, 0 if no reminders
	Logs           []ReminderLogRow `json:"logs"`
}

// TodaySummary is the count breakdown for today's rows.
type TodaySummary struct {
	Total   int `json:"total"`
	Taken   int `json:"taken"`
	Missed  int `json:"missed"`
	Pending int `json:"pending"`
}

// TodayStatusReport is the "what should happen today" overview: real log
// rows merged with synthesized pending rows, sorted by slot label.
type TodayStatusReport struct {
	PatientName  string           `json:"patient_name"`
	Date         string           `json:"date"` // YYYY-MM-DD in the reminder timezone
	TodaySummary TodaySummary     `json:"today_summary"`
	TodayLogs    []ReminderLogRow `json:"today_logs"`
}
