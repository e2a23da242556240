package service

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"herald/internal/metrics"
	"herald/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// MessageSender is the transport surface the dispatcher needs. A nil error
// means the recipient received the message; models.ErrRecipientBlocked (
// possibly wrapped) means the recipient revoked access.
type MessageSender interface {
	Send(ctx context.Context, recipientID, text string, media *models.MediaRef) error
}

// DeliveryLogStore persists per-recipient delivery attempts.
type DeliveryLogStore interface {
	AppendDeliveryLog(ctx context.Context, entry *models.DeliveryLogEntry) error
}

// Dispatcher fans one broadcast out to its recipient set. Each recipient is an
// isolated delivery attempt: one failure never aborts the rest of the fan-out.
type Dispatcher struct {
	sender  MessageSender
	logs    DeliveryLogStore
	events  *EventHub
	limiter *rate.Limiter
	workers int
	logger  *logrus.Logger
}

func NewDispatcher(sender MessageSender, logs DeliveryLogStore, events *EventHub, workers int, limiter *rate.Limiter, logger *logrus.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		sender:  sender,
		logs:    logs,
		events:  events,
		limiter: limiter,
		workers: workers,
		logger:  logger,
	}
}

// Dispatch delivers text (and optional media) to each id in targetIDs.
// Duplicate ids are collapsed keeping first-seen order, so Total counts unique
// recipients. messageID is nil for immediate broadcasts.
func (d *Dispatcher) Dispatch(ctx context.Context, messageID *int64, text string, media *models.MediaRef, targetIDs []string) models.DispatchResult {
	recipients := dedupPreservingOrder(targetIDs)
	result := models.DispatchResult{Total: len(recipients)}
	if len(recipients) == 0 {
		return result
	}

	start := time.Now()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.workers)
	)

	for _, recipientID := range recipients {
		wg.Add(1)
		sem <- struct{}{}

		go func(recipientID string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := d.deliverOne(ctx, messageID, recipientID, text, media)
			if outcome == models.OutcomeSent {
				mu.Lock()
				result.Sent++
				mu.Unlock()
			}
		}(recipientID)
	}

	wg.Wait()

	metrics.RecordTimer("broadcast_dispatch_duration", time.Since(start), nil, "Broadcast fan-out duration")

	LogWithContext(ctx, d.logger).WithFields(logrus.Fields{
		LogFieldOperation: "dispatch",
		LogFieldCount:     result.Total,
		"sent":            result.Sent,
		"text":            SanitizeContent(text),
	}).Info("Broadcast dispatch completed")

	return result
}

// deliverOne performs a single delivery attempt and records its audit row.
func (d *Dispatcher) deliverOne(ctx context.Context, messageID *int64, recipientID, text string, media *models.MediaRef) models.DeliveryOutcome {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return d.recordOutcome(ctx, messageID, recipientID, models.OutcomeFailed, err.Error())
		}
	}

	err := d.sender.Send(ctx, recipientID, text, media)

	switch {
	case err == nil:
		return d.recordOutcome(ctx, messageID, recipientID, models.OutcomeSent, "")
	case stderrors.Is(err, models.ErrRecipientBlocked):
		return d.recordOutcome(ctx, messageID, recipientID, models.OutcomeBlocked, err.Error())
	default:
		return d.recordOutcome(ctx, messageID, recipientID, models.OutcomeFailed, err.Error())
	}
}

func (d *Dispatcher) recordOutcome(ctx context.Context, messageID *int64, recipientID string, outcome models.DeliveryOutcome, detail string) models.DeliveryOutcome {
	entry := &models.DeliveryLogEntry{
		MessageID:   messageID,
		RecipientID: recipientID,
		Outcome:     outcome,
		Detail:      detail,
		CreatedAt:   time.Now().UTC(),
	}

	// The audit row is best effort; losing it must not turn a delivered
	// message into a failed one.
	if err := d.logs.AppendDeliveryLog(ctx, entry); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			LogFieldRecipientID: SanitizeRecipientID(ctx, recipientID),
			LogFieldOutcome:     string(outcome),
		}).Error("Failed to append delivery log")
	}

	if d.events != nil {
		d.events.Publish(*entry)
	}

	metrics.IncrementCounter("broadcast_deliveries_total", map[string]string{
		"outcome": string(outcome),
	}, "Per-recipient delivery attempts by outcome")

	if outcome != models.OutcomeSent {
		LogWithContext(ctx, d.logger).WithFields(logrus.Fields{
			LogFieldRecipientID: SanitizeRecipientID(ctx, recipientID),
			LogFieldOutcome:     string(outcome),
			"detail":            detail,
		}).Warn("Delivery attempt did not succeed")
	}

	return outcome
}

// dedupPreservingOrder collapses duplicate ids keeping the first occurrence.
func dedupPreservingOrder(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
