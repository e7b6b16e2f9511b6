package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"medtracker/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory store fakes used across the service tests. The reminder log
// fake mirrors the Mongo store's semantics: per-day duplicate guard and a
// conditional status transition.

type fakeScheduleStore struct {
	mu   sync.Mutex
	meds []models.Medication
}

func (f *fakeScheduleStore) add(med models.Medication) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meds = append(f.meds, med)
}

func (f *fakeScheduleStore) FindDueMedications(_ context.Context, slot string) ([]models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.Medication
	for _, med := range f.meds {
		if med.HasSlot(slot) {
			due = append(due, med)
		}
	}
	return due, nil
}

func (f *fakeScheduleStore) FindActiveMedications(_ context.Context, patientName, userID string) ([]models.Medication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var active []models.Medication
	for _, med := range f.meds {
		if !strings.EqualFold(med.PatientName, patientName) {
			continue
		}
		if userID != "" && med.UserID != userID {
			continue
		}
		if med.StartDate.After(now) {
			continue
		}
		active = append(active, med)
	}
	return active, nil
}

type fakeReminderLog struct {
	mu      sync.Mutex
	loc     *time.Location
	entries []*models.ReminderLog
}

func newFakeReminderLog(loc *time.Location) *fakeReminderLog {
	return &fakeReminderLog{loc: loc}
}

func (f *fakeReminderLog) InsertIfAbsent(_ context.Context, entry *models.ReminderLog) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	day := models.CalendarDate(entry.SentTime, f.loc)
	for _, existing := range f.entries {
		if existing.MedicationID == entry.MedicationID &&
			existing.ScheduledTime == entry.ScheduledTime &&
			models.CalendarDate(existing.SentTime, f.loc).Equal(day) {
			return false, nil
		}
	}

	entry.ID = primitive.NewObjectID()
	entry.Status = models.StatusPending
	entry.ResponseReceived = false
	stored := *entry
	f.entries = append(f.entries, &stored)
	return true, nil
}

func (f *fakeReminderLog) FindPending(_ context.Context, addresses []string, since time.Time) ([]models.ReminderLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	addrSet := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		addrSet[a] = struct{}{}
	}

	var pending []models.ReminderLog
	for _, e := range f.entries {
		if e.Status != models.StatusPending {
			continue
		}
		if _, ok := addrSet[e.ContactNumber]; !ok {
			continue
		}
		if e.SentTime.Before(since) {
			continue
		}
		pending = append(pending, *e)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SentTime.After(pending[j].SentTime)
	})
	return pending, nil
}

func (f *fakeReminderLog) TransitionStatus(_ context.Context, id primitive.ObjectID, newStatus, responseMessage string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.entries {
		if e.ID != id {
			continue
		}
		if e.Status != models.StatusPending {
			return ErrAlreadyResolved
		}
		respAt := at
		e.Status = newStatus
		e.ResponseReceived = true
		e.ResponseTime = &respAt
		e.ResponseMessage = responseMessage
		return nil
	}
	return ErrAlreadyResolved
}

func (f *fakeReminderLog) FindByPatientAndWindow(_ context.Context, patientName, userID string, from, to time.Time) ([]models.ReminderLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var logs []models.ReminderLog
	for _, e := range f.entries {
		if !strings.EqualFold(e.PatientName, patientName) {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		if e.SentTime.Before(from) || e.SentTime.After(to) {
			continue
		}
		logs = append(logs, *e)
	}
	return logs, nil
}

func (f *fakeReminderLog) FindToday(_ context.Context, patientName, userID string, dayStart, dayEnd time.Time) ([]models.ReminderLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var logs []models.ReminderLog
	for _, e := range f.entries {
		if !strings.EqualFold(e.PatientName, patientName) {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		if e.SentTime.Before(dayStart) || !e.SentTime.Before(dayEnd) {
			continue
		}
		logs = append(logs, *e)
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].SentTime.Before(logs[j].SentTime)
	})
	return logs, nil
}

func (f *fakeReminderLog) get(id primitive.ObjectID) *models.ReminderLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.ID == id {
			copied := *e
			return &copied
		}
	}
	return nil
}

func (f *fakeReminderLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeConfirmations struct {
	mu    sync.Mutex
	items []models.Confirmation
}

func (f *fakeConfirmations) Append(_ context.Context, confirmation *models.Confirmation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	confirmation.ID = primitive.NewObjectID()
	f.items = append(f.items, *confirmation)
	return nil
}

func (f *fakeConfirmations) Recent(_ context.Context, patientName, userID string, limit int) ([]models.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []models.Confirmation
	for _, c := range f.items {
		if !strings.EqualFold(c.PatientName, patientName) {
			continue
		}
		if userID != "" && c.UserID != userID {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ConfirmationTime.After(matched[j].ConfirmationTime)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeConfirmations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type sentMessage struct {
	To      string
	Body    string
	Channel string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeSender) Send(_ context.Context, to, body, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body, Channel: channel})
	if f.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
