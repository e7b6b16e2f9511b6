package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Medication is one prescribed recurring reminder definition. A medication is
// immutable after creation; editing means delete-and-recreate upstream.
type Medication struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientName   string             `bson:"patient_name" json:"patient_name"`
	ContactNumber string             `bson:"contact_number" json:"contact_number"`
	Name          string             `bson:"name" json:"name"`
	Dosage        string             `bson:"dosage" json:"dosage"`
	Times         []string           `bson:"times" json:"times"` // wall-clock HH:MM slot labels
	StartDate     time.Time          `bson:"start_date" json:"start_date"`
	DurationDays  int                `bson:"duration_days" json:"duration_days"`
	Message       string             `bson:"message,omitempty" json:"message,omitempty"` // pre-rendered body from prescription parsing
	UserID        string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// ValidationError reports a malformed medication at ingestion time.
// Malformed schedules are rejected here and never reach the tick evaluator.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid medication: %s %s", e.Field, e.Reason)
}

// Validate checks the medication definition before it is persisted.
func (m *Medication) Validate() error {
	if m.PatientName == "" {
		return &ValidationError{Field: "patient_name", Reason: "is required"}
	}
	if m.ContactNumber == "" {
		return &ValidationError{Field: "contact_number", Reason: "is required"}
	}
	if m.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if len(m.Times) == 0 {
		return &ValidationError{Field: "times", Reason: "must contain at least one HH:MM slot"}
	}
	for _, slot := range m.Times {
		if _, err := time.Parse("15:04", slot); err != nil {
			return &ValidationError{Field: "times", Reason: fmt.Sprintf("slot %q is not a valid HH:MM label", slot)}
		}
	}
	if m.DurationDays <= 0 {
		return &ValidationError{Field: "duration_days", Reason: "must be positive"}
	}
	if m.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	return nil
}

// CalendarDate truncates an instant to its calendar date in loc.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysElapsed returns the number of whole calendar days between the
// medication's start date and now, both evaluated in loc. Rounding absorbs
// DST-shortened or -lengthened days.
func (m *Medication) DaysElapsed(now time.Time, loc *time.Location) int {
	start := CalendarDate(m.StartDate, loc)
	today := CalendarDate(now, loc)
	return int(today.Sub(start).Round(24*time.Hour) / (24 * time.Hour))
}

// DueOn reports whether the medication's validity window covers now.
// A medication is due from its start date for DurationDays calendar days;
// future or elapsed medications are skipped, never retried or marked missed.
func (m *Medication) DueOn(now time.Time, loc *time.Location) bool {
	elapsed := m.DaysElapsed(now, loc)
	return elapsed >= 0 && elapsed < m.DurationDays
}

// HasSlot reports whether the medication is scheduled for the given slot label.
func (m *Medication) HasSlot(slot string) bool {
	for _, t := range m.Times {
		if t == slot {
			return true
		}
	}
	return false
}

// CreateMedicationRequest is the manual-entry payload.
type CreateMedicationRequest struct {
	PatientName   string   `json:"patient_name"`
	ContactNumber string   `json:"contact_number"`
	Name          string   `json:"name"`
	Dosage        string   `json:"dosage"`
	Times         []string `json:"times"`
	StartDate     string   `json:"start_date"` // YYYY-MM-DD, interpreted in the reminder timezone
	DurationDays  int      `json:"duration_days"`
	Message       string   `json:"message,omitempty"`
	UserID        string   `json:"user_id,omitempty"`
}

// ToMedication converts the request into a Medication, parsing the start
// date in loc. Validation happens separately at the store.
func (r *CreateMedicationRequest) ToMedication(loc *time.Location) (*Medication, error) {
	start, err := time.ParseInLocation("2006-01-02", r.StartDate, loc)
	if err != nil {
		return nil, &ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
	}
	return &Medication{
		PatientName:   r.PatientName,
		ContactNumber: r.ContactNumber,
		Name:          r.Name,
		Dosage:        r.Dosage,
		Times:         r.Times,
		StartDate:     start,
		DurationDays:  r.DurationDays,
		Message:       r.Message,
		UserID:        r.UserID,
	}, nil
}

// MedicationResponse is the API representation of a medication.
type MedicationResponse struct {
	ID            string    `json:"id"`
	PatientName   string    `json:"patient_name"`
	ContactNumber string    `json:"contact_number"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage"`
	Times         []string  `json:"times"`
	StartDate     time.Time `json:"start_date"`
	DurationDays  int       `json:"duration_days"`
	Message       string    `json:"message,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts a Medication to MedicationResponse
func (m *Medication) ToResponse() *MedicationResponse {
	return &MedicationResponse{
		ID:            m.ID.Hex(),
		PatientName:   m.PatientName,
		ContactNumber: m.ContactNumber,
		Name:          m.Name,
		Dosage:        m.Dosage,
		Times:         m.Times,
		StartDate:     m.StartDate,
		DurationDays:  m.DurationDays,
		Message:       m.Message,
		UserID:        m.UserID,
		CreatedAt:     m.CreatedAt,
	}
}
