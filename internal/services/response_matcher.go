package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"medtracker/internal/models"
)

// Keyword sets for intent classification. Containment, not exact match.
var (
	positiveKeywords = []string{"yes", "y", "taken", "done", "ok", "okay", "completed", "finished"}
	negativeKeywords = []string{"no", "n", "not taken", "missed", "forgot", "skip", "skipped"}
)

// ResponseMatcher resolves inbound free-text replies against the most recent
// pending reminder for the sender's address. The transport is not
// transaction-correlated, so recency within the lookback window is the only
// disambiguation when several reminders are open for one address.
type ResponseMatcher struct {
	logs          ReminderLogRepo
	confirmations ConfirmationRepo
	metrics       *Metrics
	lookback      time.Duration

	// addressLocks serializes concurrent inbound messages per normalized
	// address; the store's conditional transition is the second guard.
	addressLocks sync.Map // string -> *sync.Mutex
}

// NewResponseMatcher creates a new response matcher
func NewResponseMatcher(logs ReminderLogRepo, confirmations ConfirmationRepo, metrics *Metrics, lookback time.Duration) *ResponseMatcher {
	return &ResponseMatcher{
		logs:          logs,
		confirmations: confirmations,
		metrics:       metrics,
		lookback:      lookback,
	}
}

// NormalizeContactNumber strips the whatsapp: prefix, drops everything but
// digits, and ensures a leading +. Idempotent.
func NormalizeContactNumber(number string) string {
	number = strings.TrimPrefix(number, "whatsapp:")
	return "+" + digitsOnly(number)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CandidateAddresses builds the address forms the dispatched entry may have
// been stored under. Inbound transports are inconsistent about prefixes, so
// matching tolerates whichever form was persisted. Order is preserved,
// duplicates removed.
func CandidateAddresses(rawAddress string) []string {
	forms := []string{
		NormalizeContactNumber(rawAddress),
		rawAddress,
		strings.TrimPrefix(rawAddress, "whatsapp:"),
		"+" + digitsOnly(rawAddress),
	}

	seen := make(map[string]struct{}, len(forms))
	candidates := make([]string, 0, len(forms))
	for _, f := range forms {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		candidates = append(candidates, f)
	}
	return candidates
}

// classifyIntent reports whether the text matches the positive and negative
// keyword sets. Matching both or neither means the reply is ambiguous.
// Multi-letter keywords match by containment; the single-letter shorthands
// "y" and "n" match only as standalone words, otherwise nearly every reply
// would classify.
func classifyIntent(text string) (positive, negative bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	matches := func(keywords []string) bool {
		for _, kw := range keywords {
			if len(kw) == 1 {
				for _, w := range words {
					if w == kw {
						return true
					}
				}
				continue
			}
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
	return matches(positiveKeywords), matches(negativeKeywords)
}

// HandleInboundMessage classifies one inbound (address, text) event and
// resolves it against the most recent pending reminder within the lookback
// window. Ambiguous replies are deliberately not resolved.
func (m *ResponseMatcher) HandleInboundMessage(ctx context.Context, rawAddress, text string, now time.Time) (*models.MatchResult, error) {
	normalized := NormalizeContactNumber(rawAddress)

	mu := m.lockFor(normalized)
	mu.Lock()
	defer mu.Unlock()

	positive, negative := classifyIntent(text)
	if positive == negative {
		m.metrics.IncInbound(string(models.MatchIgnored))
		return &models.MatchResult{Kind: models.MatchIgnored, Reason: "unrecognized"}, nil
	}

	candidates := CandidateAddresses(rawAddress)
	pending, err := m.logs.FindPending(ctx, candidates, now.Add(-m.lookback))
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		m.metrics.IncInbound(string(models.MatchNoPending))
		slog.Debug("no pending reminder for inbound message",
			"contact_number", normalized,
			"candidates", candidates,
		)
		return &models.MatchResult{Kind: models.MatchNoPending}, nil
	}

	entry := pending[0]
	newStatus := models.StatusMissed
	if positive {
		newStatus = models.StatusTaken
	}

	if err := m.logs.TransitionStatus(ctx, entry.ID, newStatus, text, now); err != nil {
		if errors.Is(err, ErrAlreadyResolved) {
			// A second reply raced us; the first resolution stands.
			m.metrics.IncInbound(string(models.MatchIgnored))
			return &models.MatchResult{Kind: models.MatchIgnored, Reason: "already resolved"}, nil
		}
		return nil, err
	}

	confirmation := &models.Confirmation{
		MedicationID:     entry.MedicationID,
		PatientName:      entry.PatientName,
		ContactNumber:    normalized,
		ScheduledTime:    entry.ScheduledTime,
		ConfirmationTime: now,
		IsTaken:          positive,
		ResponseMessage:  text,
		LogID:            entry.ID.Hex(),
		UserID:           entry.UserID,
	}
	if err := m.confirmations.Append(ctx, confirmation); err != nil {
		// The entry is resolved either way; the confirmation is an audit
		// record, not part of the transition.
		slog.Error("failed to append confirmation",
			"log_id", entry.ID.Hex(),
			"error", err,
		)
	}

	m.metrics.IncInbound(string(models.MatchResolved))
	slog.Info("reminder resolved",
		"medication_id", entry.MedicationID,
		"patient_name", entry.PatientName,
		"slot", entry.ScheduledTime,
		"status", newStatus,
	)
	return &models.MatchResult{
		Kind:        models.MatchResolved,
		Taken:       positive,
		PatientName: entry.PatientName,
	}, nil
}

func (m *ResponseMatcher) lockFor(address string) *sync.Mutex {
	actual, _ := m.addressLocks.LoadOrStore(address, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
