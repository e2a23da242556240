package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"herald/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(sender *mockSender, logs *mockLogStore, events *EventHub) *Dispatcher {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewDispatcher(sender, logs, events, 4, nil, logger)
}

func TestDispatchAllSent(t *testing.T) {
	sender := &mockSender{}
	logs := &mockLogStore{}
	d := newTestDispatcher(sender, logs, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, []string{"1", "2", "3"})

	assert.Equal(t, models.DispatchResult{Sent: 3, Total: 3}, result)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, sender.sentIDs())
	assert.Len(t, logs.logged(), 3)
	assert.Equal(t, models.StatusSent, result.FinalStatus())
}

func TestDispatchDeduplicatesRecipients(t *testing.T) {
	sender := &mockSender{}
	logs := &mockLogStore{}
	d := newTestDispatcher(sender, logs, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, []string{"1", "2", "1", "1", "2"})

	assert.Equal(t, 2, result.Total, "Total counts unique recipients")
	assert.Equal(t, 2, result.Sent)
	assert.Len(t, sender.sentIDs(), 2, "each recipient receives the message once")
}

func TestDispatchEmptyTargetList(t *testing.T) {
	sender := &mockSender{}
	d := newTestDispatcher(sender, &mockLogStore{}, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, nil)

	assert.Equal(t, models.DispatchResult{Sent: 0, Total: 0}, result)
	assert.Empty(t, sender.sentIDs())
	assert.Equal(t, models.StatusSent, result.FinalStatus(), "empty broadcast is vacuously successful")
}

func TestDispatchLogsHideBroadcastText(t *testing.T) {
	sender := &mockSender{}
	d := newTestDispatcher(sender, &mockLogStore{}, nil)

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	d.logger = logger

	d.Dispatch(context.Background(), nil, "quarterly numbers leaked early", nil, []string{"1"})

	assert.Contains(t, buf.String(), `"text":"[hidden]"`)
	assert.NotContains(t, buf.String(), "quarterly numbers")
}

func TestDispatchPartialFailureIsolation(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, recipientID, text string, media *models.MediaRef) error {
			if recipientID == "2" {
				return errors.New("connection reset")
			}
			return nil
		},
	}
	logs := &mockLogStore{}
	d := newTestDispatcher(sender, logs, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, []string{"1", "2", "3"})

	assert.Equal(t, models.DispatchResult{Sent: 2, Total: 3}, result)
	assert.Equal(t, models.StatusSent, result.FinalStatus(), "partial delivery still counts as SENT")

	outcome, ok := logs.outcomeFor("2")
	require.True(t, ok)
	assert.Equal(t, models.OutcomeFailed, outcome)

	outcome, ok = logs.outcomeFor("1")
	require.True(t, ok)
	assert.Equal(t, models.OutcomeSent, outcome)
}

func TestDispatchBlockedRecipient(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, recipientID, text string, media *models.MediaRef) error {
			if recipientID == "blocked-user" {
				return fmt.Errorf("telegram: %w", models.ErrRecipientBlocked)
			}
			return nil
		},
	}
	logs := &mockLogStore{}
	d := newTestDispatcher(sender, logs, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, []string{"1", "blocked-user"})

	assert.Equal(t, models.DispatchResult{Sent: 1, Total: 2}, result)

	outcome, ok := logs.outcomeFor("blocked-user")
	require.True(t, ok)
	assert.Equal(t, models.OutcomeBlocked, outcome, "wrapped blocked errors classify as BLOCKED")
}

func TestDispatchAllFailed(t *testing.T) {
	sender := &mockSender{
		sendFn: func(ctx context.Context, recipientID, text string, media *models.MediaRef) error {
			return errors.New("api down")
		},
	}
	d := newTestDispatcher(sender, &mockLogStore{}, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, []string{"1", "2"})

	assert.Equal(t, models.DispatchResult{Sent: 0, Total: 2}, result)
	assert.Equal(t, models.StatusFailed, result.FinalStatus())
}

func TestDispatchLogFailureDoesNotAffectResult(t *testing.T) {
	logs := &mockLogStore{
		appendFn: func(ctx context.Context, entry *models.DeliveryLogEntry) error {
			return errors.New("disk full")
		},
	}
	d := newTestDispatcher(&mockSender{}, logs, nil)

	result := d.Dispatch(context.Background(), nil, "hello", nil, []string{"1"})

	assert.Equal(t, models.DispatchResult{Sent: 1, Total: 1}, result,
		"a lost audit row must not turn a delivered message into a failure")
}

func TestDispatchRecordsMessageID(t *testing.T) {
	logs := &mockLogStore{}
	d := newTestDispatcher(&mockSender{}, logs, nil)

	msgID := int64(42)
	d.Dispatch(context.Background(), &msgID, "hello", nil, []string{"1"})

	entries := logs.logged()
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].MessageID)
	assert.Equal(t, int64(42), *entries[0].MessageID)
}

func TestDispatchPublishesEvents(t *testing.T) {
	events := NewEventHub()
	ch, cancel := events.Subscribe()
	defer cancel()

	d := newTestDispatcher(&mockSender{}, &mockLogStore{}, events)
	d.Dispatch(context.Background(), nil, "hello", nil, []string{"1"})

	entry := <-ch
	assert.Equal(t, "1", entry.RecipientID)
	assert.Equal(t, models.OutcomeSent, entry.Outcome)
}
