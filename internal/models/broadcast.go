package models

import (
	"errors"
	"time"
)

// MessageStatus is the lifecycle state of a scheduled message. Transitions are
// one-way: PENDING -> DISPATCHING -> SENT|FAILED. SENT and FAILED are terminal.
type MessageStatus string

const (
	StatusPending     MessageStatus = "PENDING"
	StatusDispatching MessageStatus = "DISPATCHING"
	StatusSent        MessageStatus = "SENT"
	StatusFailed      MessageStatus = "FAILED"
)

// IsTerminal reports whether no further status transitions are permitted.
func (s MessageStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// MediaKind identifies how an attached media URL should be delivered.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
)

// MediaRef points at an externally hosted attachment.
type MediaRef struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
}

// ScheduledMessage is a broadcast awaiting or past dispatch. TargetIDs is the
// recipient set snapshotted at enqueue time; it is not re-resolved at send time.
type ScheduledMessage struct {
	ID        int64         `json:"id"`
	Text      string        `json:"text"`
	TargetIDs []string      `json:"target_ids"`
	Media     *MediaRef     `json:"media,omitempty"`
	SendAt    time.Time     `json:"send_at"`
	Status    MessageStatus `json:"status"`
	ClaimedAt *time.Time    `json:"claimed_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DeliveryOutcome is the per-recipient result of one delivery attempt.
type DeliveryOutcome string

const (
	OutcomeSent    DeliveryOutcome = "SENT"
	OutcomeFailed  DeliveryOutcome = "FAILED"
	OutcomeBlocked DeliveryOutcome = "BLOCKED"
)

// DeliveryLogEntry is one append-only audit row: a single delivery attempt to a
// single recipient. MessageID is nil for immediate (unscheduled) broadcasts.
type DeliveryLogEntry struct {
	ID          int64           `json:"id"`
	MessageID   *int64          `json:"message_id,omitempty"`
	RecipientID string          `json:"recipient_id"`
	Outcome     DeliveryOutcome `json:"outcome"`
	Detail      string          `json:"detail,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// DispatchResult summarizes one fan-out. Total counts unique recipients.
type DispatchResult struct {
	Sent  int `json:"sent"`
	Total int `json:"total"`
}

// FinalStatus applies the message-level status rule: an empty broadcast is
// vacuously successful, and any single delivered recipient marks the whole
// message SENT. Per-recipient truth lives in the delivery log only.
func (r DispatchResult) FinalStatus() MessageStatus {
	if r.Total == 0 || r.Sent > 0 {
		return StatusSent
	}
	return StatusFailed
}

// ErrRecipientBlocked is reported by a MessageSender implementation when the
// transport says the recipient revoked access to the bot. The dispatcher maps
// it to OutcomeBlocked; every other send error maps to OutcomeFailed.
var ErrRecipientBlocked = errors.New("recipient has blocked the sender")
