package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"medtracker/internal/models"
)

func TestNormalizeContactNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain e164", "+12345678900", "+12345678900"},
		{"whatsapp prefix", "whatsapp:+12345678900", "+12345678900"},
		{"formatted", "whatsapp:+1 234-567-8900", "+12345678900"},
		{"no plus", "12345678900", "+12345678900"},
		{"spaces and parens", "(123) 456-7890", "+1234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeContactNumber(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeContactNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
			// Normalizing twice must not change the result.
			if again := NormalizeContactNumber(got); again != got {
				t.Errorf("not idempotent: NormalizeContactNumber(%q) = %q", got, again)
			}
		})
	}
}

func TestCandidateAddresses(t *testing.T) {
	got := CandidateAddresses("whatsapp:+1 234-567-8900")

	if len(got) == 0 || got[0] != "+12345678900" {
		t.Fatalf("first candidate should be the normalized form, got %v", got)
	}

	seen := make(map[string]struct{})
	for _, c := range got {
		if _, dup := seen[c]; dup {
			t.Errorf("duplicate candidate %q in %v", c, got)
		}
		seen[c] = struct{}{}
	}

	found := false
	for _, c := range got {
		if c == "whatsapp:+1 234-567-8900" {
			found = true
		}
	}
	if !found {
		t.Errorf("raw address missing from candidates %v", got)
	}
}

func newTestMatcher(loc *time.Location) (*ResponseMatcher, *fakeReminderLog, *fakeConfirmations) {
	logs := newFakeReminderLog(loc)
	confirmations := &fakeConfirmations{}
	matcher := NewResponseMatcher(logs, confirmations, nil, 4*time.Hour)
	return matcher, logs, confirmations
}

func seedPending(t *testing.T, logs *fakeReminderLog, contactNumber, slot string, sentTime time.Time) *models.ReminderLog {
	t.Helper()
	entry := &models.ReminderLog{
		MedicationID:  "med-" + slot,
		PatientName:   "John Doe",
		ContactNumber: contactNumber,
		ScheduledTime: slot,
		SentTime:      sentTime,
	}
	inserted, err := logs.InsertIfAbsent(context.Background(), entry)
	if err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
	if !inserted {
		t.Fatalf("seed insert was a duplicate")
	}
	return entry
}

func TestHandleInboundMessageClassification(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)

	tests := []struct {
		name      string
		text      string
		wantKind  models.MatchKind
		wantTaken bool
	}{
		{"plain yes", "yes", models.MatchResolved, true},
		{"emphatic yes", "YES!", models.MatchResolved, true},
		{"done", "done", models.MatchResolved, true},
		{"no with filler", "No thanks", models.MatchResolved, false},
		{"forgot", "I forgot", models.MatchResolved, false},
		{"ambiguous both", "yes no", models.MatchIgnored, false},
		{"ambiguous neither", "maybe", models.MatchIgnored, false},
		{"empty", "", models.MatchIgnored, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher, logs, confirmations := newTestMatcher(time.UTC)
			seedPending(t, logs, "+12345678900", "08:00", now.Add(-5*time.Minute))

			result, err := matcher.HandleInboundMessage(context.Background(), "whatsapp:+12345678900", tt.text, now)
			if err != nil {
				t.Fatalf("HandleInboundMessage failed: %v", err)
			}
			if result.Kind != tt.wantKind {
				t.Fatalf("kind = %q, want %q", result.Kind, tt.wantKind)
			}
			if result.Kind == models.MatchResolved {
				if result.Taken != tt.wantTaken {
					t.Errorf("taken = %v, want %v", result.Taken, tt.wantTaken)
				}
				if confirmations.count() != 1 {
					t.Errorf("confirmation count = %d, want 1", confirmations.count())
				}
			} else if confirmations.count() != 0 {
				t.Errorf("ignored reply produced %d confirmations", confirmations.count())
			}
		})
	}
}

func TestHandleInboundMessagePicksMostRecent(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 10, 0, 0, time.UTC)
	matcher, logs, _ := newTestMatcher(time.UTC)

	older := seedPending(t, logs, "+12345678900", "08:00", now.Add(-3*time.Hour))
	newer := seedPending(t, logs, "+12345678900", "20:00", now.Add(-10*time.Minute))

	result, err := matcher.HandleInboundMessage(context.Background(), "+12345678900", "yes", now)
	if err != nil {
		t.Fatalf("HandleInboundMessage failed: %v", err)
	}
	if result.Kind != models.MatchResolved {
		t.Fatalf("kind = %q, want resolved", result.Kind)
	}

	if got := logs.get(newer.ID); got.Status != models.StatusTaken {
		t.Errorf("most recent entry status = %q, want taken", got.Status)
	}
	if got := logs.get(older.ID); got.Status != models.StatusPending {
		t.Errorf("older entry status = %q, want pending", got.Status)
	}
}

func TestHandleInboundMessageLookbackWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	matcher, logs, confirmations := newTestMatcher(time.UTC)

	// Dispatched five hours ago, outside the four hour lookback.
	stale := seedPending(t, logs, "+12345678900", "09:00", now.Add(-5*time.Hour))

	result, err := matcher.HandleInboundMessage(context.Background(), "+12345678900", "yes", now)
	if err != nil {
		t.Fatalf("HandleInboundMessage failed: %v", err)
	}
	if result.Kind != models.MatchNoPending {
		t.Fatalf("kind = %q, want no_pending", result.Kind)
	}
	if got := logs.get(stale.ID); got.Status != models.StatusPending {
		t.Errorf("stale entry status = %q, want pending", got.Status)
	}
	if confirmations.count() != 0 {
		t.Errorf("confirmation count = %d, want 0", confirmations.count())
	}
}

func TestHandleInboundMessageSecondReplyIgnored(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	matcher, logs, confirmations := newTestMatcher(time.UTC)
	entry := seedPending(t, logs, "+12345678900", "08:00", now.Add(-5*time.Minute))

	first, err := matcher.HandleInboundMessage(context.Background(), "+12345678900", "yes", now)
	if err != nil {
		t.Fatalf("first reply failed: %v", err)
	}
	if first.Kind != models.MatchResolved || !first.Taken {
		t.Fatalf("first reply = %+v, want resolved taken", first)
	}

	second, err := matcher.HandleInboundMessage(context.Background(), "+12345678900", "no", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second reply failed: %v", err)
	}
	if second.Kind == models.MatchResolved {
		t.Fatalf("second reply resolved, want ignored or no_pending")
	}

	if got := logs.get(entry.ID); got.Status != models.StatusTaken {
		t.Errorf("entry status = %q after second reply, want taken", got.Status)
	}
	if confirmations.count() != 1 {
		t.Errorf("confirmation count = %d, want 1", confirmations.count())
	}
}

func TestHandleInboundMessageConcurrentReplies(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	matcher, logs, confirmations := newTestMatcher(time.UTC)
	entry := seedPending(t, logs, "+12345678900", "08:00", now.Add(-5*time.Minute))

	texts := []string{"yes", "no"}
	results := make([]*models.MatchResult, len(texts))
	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			result, err := matcher.HandleInboundMessage(context.Background(), "+12345678900", text, now)
			if err != nil {
				t.Errorf("reply %q failed: %v", text, err)
				return
			}
			results[i] = result
		}(i, text)
	}
	wg.Wait()

	resolved := 0
	for _, r := range results {
		if r != nil && r.Kind == models.MatchResolved {
			resolved++
		}
	}
	if resolved != 1 {
		t.Fatalf("resolved count = %d, want exactly 1", resolved)
	}

	got := logs.get(entry.ID)
	if got.Status != models.StatusTaken && got.Status != models.StatusMissed {
		t.Errorf("entry status = %q, want taken or missed", got.Status)
	}
	if confirmations.count() != 1 {
		t.Errorf("confirmation count = %d, want 1", confirmations.count())
	}
}

func TestHandleInboundMessageConfirmationFields(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	matcher, logs, confirmations := newTestMatcher(time.UTC)
	entry := seedPending(t, logs, "whatsapp:+12345678900", "08:00", now.Add(-5*time.Minute))

	result, err := matcher.HandleInboundMessage(context.Background(), "whatsapp:+12345678900", "taken", now)
	if err != nil {
		t.Fatalf("HandleInboundMessage failed: %v", err)
	}
	if result.Kind != models.MatchResolved {
		t.Fatalf("kind = %q, want resolved", result.Kind)
	}
	if result.PatientName != "John Doe" {
		t.Errorf("patient name = %q, want John Doe", result.PatientName)
	}

	if confirmations.count() != 1 {
		t.Fatalf("confirmation count = %d, want 1", confirmations.count())
	}
	c := confirmations.items[0]
	if c.ContactNumber != "+12345678900" {
		t.Errorf("confirmation contact = %q, want normalized +12345678900", c.ContactNumber)
	}
	if c.LogID != entry.ID.Hex() {
		t.Errorf("confirmation log_id = %q, want %q", c.LogID, entry.ID.Hex())
	}
	if !c.IsTaken {
		t.Errorf("confirmation is_taken = false, want true")
	}

	resolved := logs.get(entry.ID)
	if !resolved.ResponseReceived || resolved.ResponseTime == nil {
		t.Errorf("resolved entry missing response metadata: %+v", resolved)
	}
	if resolved.ResponseMessage != "taken" {
		t.Errorf("response message = %q, want %q", resolved.ResponseMessage, "taken")
	}
}
