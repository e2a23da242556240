package service

import (
	"context"
	"sync"
	"time"

	"herald/internal/models"
)

// Shared hand-rolled mocks for the service tests. Each mock records its calls
// and delegates to an optional function field so individual tests can inject
// behavior without a mocking framework.

type mockDirectoryStore struct {
	listIDsFn   func(ctx context.Context) ([]string, error)
	listByTagFn func(ctx context.Context, tag string) ([]string, error)

	lastTag string
}

func (m *mockDirectoryStore) ListRecipientIDs(ctx context.Context) ([]string, error) {
	if m.listIDsFn != nil {
		return m.listIDsFn(ctx)
	}
	return nil, nil
}

func (m *mockDirectoryStore) ListRecipientIDsByTag(ctx context.Context, tag string) ([]string, error) {
	m.lastTag = tag
	if m.listByTagFn != nil {
		return m.listByTagFn(ctx, tag)
	}
	return nil, nil
}

type mockSender struct {
	mu     sync.Mutex
	sent   []string
	sendFn func(ctx context.Context, recipientID, text string, media *models.MediaRef) error
}

func (m *mockSender) Send(ctx context.Context, recipientID, text string, media *models.MediaRef) error {
	m.mu.Lock()
	m.sent = append(m.sent, recipientID)
	m.mu.Unlock()

	if m.sendFn != nil {
		return m.sendFn(ctx, recipientID, text, media)
	}
	return nil
}

func (m *mockSender) sentIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

type mockLogStore struct {
	mu       sync.Mutex
	entries  []models.DeliveryLogEntry
	appendFn func(ctx context.Context, entry *models.DeliveryLogEntry) error
}

func (m *mockLogStore) AppendDeliveryLog(ctx context.Context, entry *models.DeliveryLogEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, *entry)
	m.mu.Unlock()

	if m.appendFn != nil {
		return m.appendFn(ctx, entry)
	}
	return nil
}

func (m *mockLogStore) logged() []models.DeliveryLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DeliveryLogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *mockLogStore) outcomeFor(recipientID string) (models.DeliveryOutcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.RecipientID == recipientID {
			return e.Outcome, true
		}
	}
	return "", false
}

type mockBroadcastStore struct {
	dueFn      func(ctx context.Context, now time.Time) ([]models.ScheduledMessage, error)
	claimFn    func(ctx context.Context, id int64) (bool, error)
	finalizeFn func(ctx context.Context, id int64, status models.MessageStatus) error
	releaseFn  func(ctx context.Context, olderThan time.Time) (int64, error)

	finalized map[int64]models.MessageStatus
	released  []time.Time
}

func newMockBroadcastStore() *mockBroadcastStore {
	return &mockBroadcastStore{finalized: make(map[int64]models.MessageStatus)}
}

func (m *mockBroadcastStore) DueMessages(ctx context.Context, now time.Time) ([]models.ScheduledMessage, error) {
	if m.dueFn != nil {
		return m.dueFn(ctx, now)
	}
	return nil, nil
}

func (m *mockBroadcastStore) ClaimMessage(ctx context.Context, id int64) (bool, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, id)
	}
	return true, nil
}

func (m *mockBroadcastStore) FinalizeMessage(ctx context.Context, id int64, status models.MessageStatus) error {
	m.finalized[id] = status
	if m.finalizeFn != nil {
		return m.finalizeFn(ctx, id, status)
	}
	return nil
}

func (m *mockBroadcastStore) ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	m.released = append(m.released, olderThan)
	if m.releaseFn != nil {
		return m.releaseFn(ctx, olderThan)
	}
	return 0, nil
}

type mockDispatcher struct {
	dispatchFn func(ctx context.Context, messageID *int64, text string, media *models.MediaRef, targetIDs []string) models.DispatchResult

	calls []dispatchCall
}

type dispatchCall struct {
	messageID *int64
	text      string
	targetIDs []string
}

func (m *mockDispatcher) Dispatch(ctx context.Context, messageID *int64, text string, media *models.MediaRef, targetIDs []string) models.DispatchResult {
	m.calls = append(m.calls, dispatchCall{messageID: messageID, text: text, targetIDs: targetIDs})
	if m.dispatchFn != nil {
		return m.dispatchFn(ctx, messageID, text, media, targetIDs)
	}
	return models.DispatchResult{Sent: len(targetIDs), Total: len(targetIDs)}
}

type mockMessageStore struct {
	insertFn func(ctx context.Context, msg *models.ScheduledMessage) (int64, error)
	getFn    func(ctx context.Context, id int64) (*models.ScheduledMessage, error)
	countFn  func(ctx context.Context) (int, error)
	statsFn  func(ctx context.Context) (map[models.DeliveryOutcome]int64, error)
	recentFn func(ctx context.Context, limit int) ([]models.DeliveryLogEntry, error)

	inserted    []*models.ScheduledMessage
	recentLimit int
}

func (m *mockMessageStore) InsertScheduledMessage(ctx context.Context, msg *models.ScheduledMessage) (int64, error) {
	m.inserted = append(m.inserted, msg)
	if m.insertFn != nil {
		return m.insertFn(ctx, msg)
	}
	return int64(len(m.inserted)), nil
}

func (m *mockMessageStore) GetScheduledMessage(ctx context.Context, id int64) (*models.ScheduledMessage, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageStore) CountPendingMessages(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockMessageStore) DeliveryLogStats(ctx context.Context) (map[models.DeliveryOutcome]int64, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return map[models.DeliveryOutcome]int64{}, nil
}

func (m *mockMessageStore) RecentDeliveryLogs(ctx context.Context, limit int) ([]models.DeliveryLogEntry, error) {
	m.recentLimit = limit
	if m.recentFn != nil {
		return m.recentFn(ctx, limit)
	}
	return nil, nil
}

type mockDirectoryManager struct {
	saveFn     func(ctx context.Context, recipient *models.Recipient) error
	getFn      func(ctx context.Context, id string) (*models.Recipient, error)
	listFn     func(ctx context.Context) ([]models.Recipient, error)
	listTagsFn func(ctx context.Context) ([]string, error)

	saved []*models.Recipient
}

func (m *mockDirectoryManager) SaveRecipient(ctx context.Context, recipient *models.Recipient) error {
	m.saved = append(m.saved, recipient)
	if m.saveFn != nil {
		return m.saveFn(ctx, recipient)
	}
	return nil
}

func (m *mockDirectoryManager) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &models.Recipient{ID: id}, nil
}

func (m *mockDirectoryManager) ListRecipients(ctx context.Context) ([]models.Recipient, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockDirectoryManager) ListTags(ctx context.Context) ([]string, error) {
	if m.listTagsFn != nil {
		return m.listTagsFn(ctx)
	}
	return nil, nil
}
