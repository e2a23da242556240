package service

import (
	"context"
	"time"

	"herald/internal/constants"
	"herald/internal/errors"
	"herald/internal/models"
	"herald/internal/validation"

	"github.com/sirupsen/logrus"
)

// MessageStore is the persistence surface of the broadcast facade.
type MessageStore interface {
	InsertScheduledMessage(ctx context.Context, msg *models.ScheduledMessage) (int64, error)
	GetScheduledMessage(ctx context.Context, id int64) (*models.ScheduledMessage, error)
	CountPendingMessages(ctx context.Context) (int, error)
	DeliveryLogStats(ctx context.Context) (map[models.DeliveryOutcome]int64, error)
	RecentDeliveryLogs(ctx context.Context, limit int) ([]models.DeliveryLogEntry, error)
}

// DirectoryManager is the read/write directory surface of the facade.
type DirectoryManager interface {
	SaveRecipient(ctx context.Context, recipient *models.Recipient) error
	GetRecipient(ctx context.Context, id string) (*models.Recipient, error)
	ListRecipients(ctx context.Context) ([]models.Recipient, error)
	ListTags(ctx context.Context) ([]string, error)
}

// BroadcastRequest is an operator's ask: send this text (and optional media)
// to this target set, now or at SendAt. A zero SendAt means immediately.
type BroadcastRequest struct {
	Text   string            `json:"text"`
	Target models.TargetSpec `json:"target"`
	Media  *models.MediaRef  `json:"media,omitempty"`
	SendAt time.Time         `json:"send_at,omitempty"`
}

// BroadcastService is the facade the admin API talks to. Input errors are
// returned synchronously and never reach the delivery log; the log records
// delivery attempts only.
type BroadcastService struct {
	store      MessageStore
	directory  DirectoryManager
	resolver   *Resolver
	dispatcher MessageDispatcher
	logger     *logrus.Logger
	now        func() time.Time
}

func NewBroadcastService(store MessageStore, directory DirectoryManager, resolver *Resolver, dispatcher MessageDispatcher, logger *logrus.Logger) *BroadcastService {
	return &BroadcastService{
		store:      store,
		directory:  directory,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SendNow resolves the target set and dispatches immediately, bypassing the
// scheduled queue. The delivery log rows carry a nil message id.
func (s *BroadcastService) SendNow(ctx context.Context, req BroadcastRequest) (models.DispatchResult, error) {
	targetIDs, err := s.prepare(ctx, &req)
	if err != nil {
		return models.DispatchResult{}, err
	}

	result := s.dispatcher.Dispatch(ctx, nil, req.Text, req.Media, targetIDs)

	s.logger.WithFields(logrus.Fields{
		LogFieldOperation: "send_now",
		"sent":            result.Sent,
		"total":           result.Total,
	}).Info("Immediate broadcast dispatched")

	return result, nil
}

// Schedule resolves the target set and enqueues the broadcast for the
// dispatch loop. The recipient snapshot is frozen here, not at send time.
func (s *BroadcastService) Schedule(ctx context.Context, req BroadcastRequest) (int64, error) {
	if err := validation.ValidateScheduleTime(req.SendAt, s.now()); err != nil {
		return 0, err
	}

	targetIDs, err := s.prepare(ctx, &req)
	if err != nil {
		return 0, err
	}

	sendAt := req.SendAt
	if sendAt.IsZero() {
		sendAt = s.now()
	}

	id, err := s.store.InsertScheduledMessage(ctx, &models.ScheduledMessage{
		Text:      req.Text,
		TargetIDs: targetIDs,
		Media:     req.Media,
		SendAt:    sendAt,
	})
	if err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldMessageID: id,
		LogFieldCount:     len(targetIDs),
		"send_at":         sendAt.UTC().Format(time.RFC3339),
	}).Info("Broadcast scheduled")

	return id, nil
}

// prepare validates the request and resolves its target snapshot. A broadcast
// that resolves to nobody is rejected up front rather than enqueued as a noop.
func (s *BroadcastService) prepare(ctx context.Context, req *BroadcastRequest) ([]string, error) {
	if err := validation.ValidateBroadcastText(req.Text); err != nil {
		return nil, err
	}
	if err := validation.ValidateMediaRef(req.Media); err != nil {
		return nil, err
	}

	targetIDs, err := s.resolver.Resolve(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if len(targetIDs) == 0 {
		return nil, errors.NewValidationError("target", "no recipients matched the target")
	}

	for _, id := range targetIDs {
		if err := validation.ValidateRecipientID(id); err != nil {
			return nil, err
		}
	}

	return targetIDs, nil
}

// GetMessage returns one scheduled message, or a not-found error.
func (s *BroadcastService) GetMessage(ctx context.Context, id int64) (*models.ScheduledMessage, error) {
	msg, err := s.store.GetScheduledMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errors.NewNotFoundError("message", "")
	}
	return msg, nil
}

// PendingCount returns the number of messages awaiting dispatch.
func (s *BroadcastService) PendingCount(ctx context.Context) (int, error) {
	return s.store.CountPendingMessages(ctx)
}

// LogStats returns aggregate delivery counts per outcome.
func (s *BroadcastService) LogStats(ctx context.Context) (map[models.DeliveryOutcome]int64, error) {
	return s.store.DeliveryLogStats(ctx)
}

// RecentLogs returns the newest delivery log entries, newest first. The limit
// is clamped to sane bounds.
func (s *BroadcastService) RecentLogs(ctx context.Context, limit int) ([]models.DeliveryLogEntry, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentLogLimit
	}
	if limit > constants.MaxRecentLogLimit {
		limit = constants.MaxRecentLogLimit
	}
	return s.store.RecentDeliveryLogs(ctx, limit)
}

// UpsertRecipient validates and saves a directory entry. Tags are normalized
// before validation so the stored form is what gets checked.
func (s *BroadcastService) UpsertRecipient(ctx context.Context, id, displayName string, tags []string) (*models.Recipient, error) {
	if err := validation.ValidateRecipientID(id); err != nil {
		return nil, err
	}
	if err := validation.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}

	normalized := models.NormalizeTags(tags)
	if err := validation.ValidateTags(normalized); err != nil {
		return nil, err
	}

	recipient := &models.Recipient{
		ID:          id,
		DisplayName: displayName,
		Tags:        normalized,
	}
	if err := s.directory.SaveRecipient(ctx, recipient); err != nil {
		return nil, err
	}

	return s.directory.GetRecipient(ctx, id)
}

// GetRecipient returns one directory entry, or a not-found error.
func (s *BroadcastService) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	recipient, err := s.directory.GetRecipient(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, errors.NewNotFoundError("recipient", id)
	}
	return recipient, nil
}

// ListRecipients returns the full directory ordered by display name.
func (s *BroadcastService) ListRecipients(ctx context.Context) ([]models.Recipient, error) {
	return s.directory.ListRecipients(ctx)
}

// ListTags returns all distinct tags in use.
func (s *BroadcastService) ListTags(ctx context.Context) ([]string, error) {
	return s.directory.ListTags(ctx)
}
