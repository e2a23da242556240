package service

import (
	"context"
	"fmt"
	"time"

	"herald/internal/errors"
	"herald/internal/metrics"
	"herald/internal/models"

	"github.com/sirupsen/logrus"
)

// BroadcastStore is the scheduled-message surface the dispatch loop needs.
type BroadcastStore interface {
	DueMessages(ctx context.Context, now time.Time) ([]models.ScheduledMessage, error)
	ClaimMessage(ctx context.Context, id int64) (bool, error)
	FinalizeMessage(ctx context.Context, id int64, status models.MessageStatus) error
	ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error)
}

// MessageDispatcher fans a single broadcast out to its recipients.
type MessageDispatcher interface {
	Dispatch(ctx context.Context, messageID *int64, text string, media *models.MediaRef, targetIDs []string) models.DispatchResult
}

// Scheduler polls for due messages and drives each one through the
// claim -> dispatch -> finalize lifecycle. One cycle runs at startup, then
// every poll interval.
type Scheduler struct {
	store        BroadcastStore
	dispatcher   MessageDispatcher
	pollInterval time.Duration
	claimLease   time.Duration
	logger       *logrus.Logger
	now          func() time.Time
	stopCh       chan struct{}
}

func NewScheduler(store BroadcastStore, dispatcher MessageDispatcher, pollInterval, claimLease time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:        store,
		dispatcher:   dispatcher,
		pollInterval: pollInterval,
		claimLease:   claimLease,
		logger:       logger,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.logger.WithField("poll_interval", s.pollInterval.String()).Info("Starting dispatch loop")

	s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Dispatch loop context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Dispatch loop stop signal received, stopping")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// RunCycle executes one poll iteration: release stale claims left behind by a
// crashed instance, then claim and dispatch every due message.
func (s *Scheduler) RunCycle(ctx context.Context) {
	now := s.now()

	released, err := s.store.ReleaseStaleClaims(ctx, now.Add(-s.claimLease))
	if err != nil {
		s.logger.WithError(err).Error("Failed to release stale claims")
	} else if released > 0 {
		s.logger.WithField(LogFieldCount, released).Warn("Released stale dispatch claims")
	}

	due, err := s.store.DueMessages(ctx, now)
	if err != nil {
		s.logger.WithError(err).Error("Failed to query due messages")
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.WithField(LogFieldCount, len(due)).Info("Dispatching due messages")

	for i := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.dispatchOne(ctx, &due[i])
	}
}

// dispatchOne claims a message, fans it out, and records the terminal status.
// A lost claim means another instance took the message; that is not an error.
func (s *Scheduler) dispatchOne(ctx context.Context, msg *models.ScheduledMessage) {
	claimed, err := s.store.ClaimMessage(ctx, msg.ID)
	if err != nil {
		s.logger.WithError(err).WithField(LogFieldMessageID, msg.ID).Error("Failed to claim message")
		return
	}
	if !claimed {
		s.logger.WithField(LogFieldMessageID, msg.ID).Debug("Message claimed elsewhere, skipping")
		return
	}

	result, ok := s.dispatchSafely(ctx, msg)

	status := models.StatusFailed
	if ok {
		status = result.FinalStatus()
	}

	if err := s.store.FinalizeMessage(ctx, msg.ID, status); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			LogFieldMessageID: msg.ID,
			LogFieldStatus:    string(status),
		}).Error("Failed to finalize message")
		return
	}

	metrics.IncrementCounter("scheduled_messages_total", map[string]string{
		"status": string(status),
	}, "Finalized scheduled messages by status")

	s.logger.WithFields(logrus.Fields{
		LogFieldMessageID: msg.ID,
		LogFieldStatus:    string(status),
		"sent":            result.Sent,
		"total":           result.Total,
	}).Info("Scheduled message finalized")
}

// dispatchSafely isolates the fan-out so a panic in transport code marks the
// message FAILED instead of killing the loop.
func (s *Scheduler) dispatchSafely(ctx context.Context, msg *models.ScheduledMessage) (result models.DispatchResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewDispatchError(msg.ID, fmt.Errorf("panic: %v", r))
			s.logger.WithError(err).WithField(LogFieldMessageID, msg.ID).Error("Dispatch panicked")
			ok = false
		}
	}()

	id := msg.ID
	result = s.dispatcher.Dispatch(ctx, &id, msg.Text, msg.Media, msg.TargetIDs)
	return result, true
}
