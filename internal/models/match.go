package models

import "fmt"

// MatchKind classifies the outcome of matching an inbound reply.
type MatchKind string

const (
	// MatchResolved: a pending reminder was found and transitioned.
	MatchResolved MatchKind = "resolved"
	// MatchIgnored: the text was unrecognized/ambiguous, or the entry was
	// already resolved by an earlier reply.
	MatchIgnored MatchKind = "ignored"
	// MatchNoPending: no pending reminder for this address inside the
	// lookback window. A normal outcome, not an error.
	MatchNoPending MatchKind = "no_pending"
)

// MatchResult is the outcome of handling one inbound message.
type MatchResult struct {
	Kind        MatchKind `json:"status"`
	Taken       bool      `json:"is_taken,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// AckFallback is returned when inbound handling fails internally. The
// transport reply is always sent, even on error.
const AckFallback = "Thank you for your message. We're experiencing technical difficulties. Please contact your healthcare provider if you need immediate assistance."

// Acknowledgment renders the short auto-reply for the given channel.
func (r *MatchResult) Acknowledgment(channel string) string {
	switch r.Kind {
	case MatchResolved:
		if channel == ChannelWhatsApp {
			if r.Taken {
				return fmt.Sprintf("Excellent %s! ✅ Your medication has been marked as taken. Stay healthy!", r.PatientName)
			}
			return fmt.Sprintf("Thank you for the update %s. ⚠️ Your medication has been marked as missed. Please consult your doctor if needed.", r.PatientName)
		}
		if r.Taken {
			return fmt.Sprintf("Great job %s! ✅ Your medication has been marked as taken. Keep up the good work!", r.PatientName)
		}
		return fmt.Sprintf("Thanks for letting us know %s. ⚠️ Your medication has been marked as missed. Please try to take it when possible and consult your doctor if you have concerns.", r.PatientName)
	case MatchNoPending:
		if channel == ChannelWhatsApp {
			return "We couldn't find a recent medication reminder. If you need help, please contact your healthcare provider."
		}
		return "We couldn't find a recent medication reminder for your number. If you need help, please contact your healthcare provider."
	default:
		if channel == ChannelWhatsApp {
			return "Thank you for your message. For assistance, please contact your healthcare provider."
		}
		return "Thank you for your message. If you need assistance, please contact your healthcare provider."
	}
}
