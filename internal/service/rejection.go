package service

import (
	"errors"
	"fmt"
	"time"
)

// RejectReason classifies expected, user-facing submission outcomes.
type RejectReason string

// Rejection reasons.
const (
	ReasonValidation RejectReason = "validation" // unknown problem or catalog lookup failure
	ReasonDuplicate  RejectReason = "duplicate"  // resubmission within the duplicate window
	ReasonCooldown   RejectReason = "cooldown"   // per-user rate limit
)

// Rejection is a structured refusal of a submission. It carries enough
// detail to render a helpful message and is returned as an error so it
// flows through the normal error path; use AsRejection to recover it.
type Rejection struct {
	Reason  RejectReason
	Message string

	// Remaining is set for cooldown rejections.
	Remaining time.Duration
	// PriorSubmission is set for duplicate rejections.
	PriorSubmission *time.Time
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	return fmt.Sprintf("submission rejected (%s): %s", r.Reason, r.Message)
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func rejectValidation(message string) *Rejection {
	return &Rejection{Reason: ReasonValidation, Message: message}
}

func rejectDuplicate(prior time.Time, message string) *Rejection {
	return &Rejection{Reason: ReasonDuplicate, Message: message, PriorSubmission: &prior}
}

func rejectCooldown(remaining time.Duration) *Rejection {
	return &Rejection{
		Reason:    ReasonCooldown,
		Message:   fmt.Sprintf("wait %d more seconds before submitting again", int(remaining.Seconds())+1),
		Remaining: remaining,
	}
}
