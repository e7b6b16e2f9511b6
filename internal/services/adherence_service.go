package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"medtracker/internal/models"
)

// AdherenceService answers point-in-time adherence queries against the
// reminder log and confirmation history. All queries are pure reads.
type AdherenceService struct {
	schedules     ScheduleStore
	logs          ReminderLogRepo
	confirmations ConfirmationRepo
	loc           *time.Location
	now           func() time.Time
}

// NewAdherenceService creates a new adherence service
func NewAdherenceService(schedules ScheduleStore, logs ReminderLogRepo, confirmations ConfirmationRepo, loc *time.Location) *AdherenceService {
	return &AdherenceService{
		schedules:     schedules,
		logs:          logs,
		confirmations: confirmations,
		loc:           loc,
		now:           time.Now,
	}
}

// Adherence summarizes reminder outcomes for a patient over the trailing
// period of the given number of days.
func (s *AdherenceService) Adherence(ctx context.Context, patientName string, days int, userID string) (*models.AdherenceReport, error) {
	now := s.now()
	from := now.AddDate(0, 0, -days)

	logs, err := s.logs.FindByPatientAndWindow(ctx, patientName, userID, from, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder logs: %w", err)
	}

	report := &models.AdherenceReport{
		PatientName:    patientName,
		PeriodDays:     days,
		TotalReminders: len(logs),
		Logs:           make([]models.ReminderLogRow, 0, len(logs)),
	}
	for i := range logs {
		switch logs[i].Status {
		case models.StatusTaken:
			report.Taken++
		case models.StatusMissed:
			report.Missed++
		default:
			report.Pending++
		}
		report.Logs = append(report.Logs, logs[i].ToRow())
	}

	if report.TotalReminders > 0 {
		rate := float64(report.Taken) / float64(report.TotalReminders) * 100
		report.AdherenceRate = math.Round(rate*100) / 100
	}
	return report, nil
}

// RecentConfirmations returns a patient's confirmations, newest first
func (s *AdherenceService) RecentConfirmations(ctx context.Context, patientName string, limit int, userID string) ([]models.ConfirmationResponse, error) {
	confirmations, err := s.confirmations.Recent(ctx, patientName, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmations: %w", err)
	}

	responses := make([]models.ConfirmationResponse, 0, len(confirmations))
	for i := range confirmations {
		responses = append(responses, *confirmations[i].ToResponse())
	}
	return responses, nil
}

// TodayStatus returns today's reminder rows for a patient: the real log
// entries plus a synthesized pending row for every (active medication, slot)
// pair the dispatcher has not reached yet. The union reflects what should
// happen today, not just what already did.
func (s *AdherenceService) TodayStatus(ctx context.Context, patientName, userID string) (*models.TodayStatusReport, error) {
	now := s.now()
	dayStart := models.CalendarDate(now, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	logs, err := s.logs.FindToday(ctx, patientName, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load today's reminder logs: %w", err)
	}

	rows := make([]models.ReminderLogRow, 0, len(logs))
	logged := make(map[string]struct{}, len(logs))
	for i := range logs {
		rows = append(rows, logs[i].ToRow())
		logged[logs[i].MedicationID+"|"+logs[i].ScheduledTime] = struct{}{}
	}

	meds, err := s.schedules.FindActiveMedications(ctx, patientName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active medications: %w", err)
	}
	for i := range meds {
		med := &meds[i]
		endDate := med.StartDate.AddDate(0, 0, med.DurationDays)
		if now.After(endDate) {
			continue
		}
		for _, slot := range med.Times {
			if _, ok := logged[med.ID.Hex()+"|"+slot]; ok {
				continue
			}
			rows = append(rows, models.SynthesizedPendingRow(med.ID.Hex(), patientName, slot))
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ScheduledTime < rows[j].ScheduledTime
	})

	report := &models.TodayStatusReport{
		PatientName: patientName,
		Date:        dayStart.Format("2006-01-02"),
		TodayLogs:   rows,
	}
	report.TodaySummary.Total = len(rows)
	for i := range rows {
		switch rows[i].Status {
		case models.StatusTaken:
			report.TodaySummary.Taken++
		case models.StatusMissed:
			report.TodaySummary.Missed++
		default:
			report.TodaySummary.Pending++
		}
	}
	return report, nil
}
