package service

import (
	"context"
	"testing"
	"time"

	"herald/internal/constants"
	"herald/internal/errors"
	"herald/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcastService(store *mockMessageStore, directory *mockDirectoryManager, dirStore *mockDirectoryStore, dispatcher *mockDispatcher) *BroadcastService {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	svc := NewBroadcastService(store, directory, NewResolver(dirStore), dispatcher, logger)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func explicitTarget(ids string) models.TargetSpec {
	return models.TargetSpec{Kind: models.TargetExplicit, Explicit: ids}
}

func TestSendNow(t *testing.T) {
	dispatcher := &mockDispatcher{}
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, &mockDirectoryStore{}, dispatcher)

	result, err := svc.SendNow(context.Background(), BroadcastRequest{
		Text:   "deploy finished",
		Target: explicitTarget("1,2"),
	})

	require.NoError(t, err)
	assert.Equal(t, models.DispatchResult{Sent: 2, Total: 2}, result)
	require.Len(t, dispatcher.calls, 1)
	assert.Nil(t, dispatcher.calls[0].messageID, "immediate broadcasts carry no message id")
	assert.Equal(t, []string{"1", "2"}, dispatcher.calls[0].targetIDs)
}

func TestSendNowRejectsEmptyText(t *testing.T) {
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.SendNow(context.Background(), BroadcastRequest{
		Text:   "   ",
		Target: explicitTarget("1"),
	})

	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, appErr.Code)
}

func TestSendNowRejectsEmptyTargetSet(t *testing.T) {
	dirStore := &mockDirectoryStore{
		listByTagFn: func(ctx context.Context, tag string) ([]string, error) {
			return nil, nil
		},
	}
	dispatcher := &mockDispatcher{}
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, dirStore, dispatcher)

	_, err := svc.SendNow(context.Background(), BroadcastRequest{
		Text:   "hello",
		Target: models.TargetSpec{Kind: models.TargetTag, Tag: "ghost"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients matched")
	assert.Empty(t, dispatcher.calls)
}

func TestSendNowRejectsInvalidRecipientID(t *testing.T) {
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.SendNow(context.Background(), BroadcastRequest{
		Text:   "hello",
		Target: explicitTarget("1,not a chat id!"),
	})

	assert.Error(t, err)
}

func TestSendNowRejectsInvalidMedia(t *testing.T) {
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.SendNow(context.Background(), BroadcastRequest{
		Text:   "hello",
		Target: explicitTarget("1"),
		Media:  &models.MediaRef{URL: "ftp://example.com/file", Kind: models.MediaPhoto},
	})

	assert.Error(t, err)
}

func TestSchedule(t *testing.T) {
	store := &mockMessageStore{}
	svc := newTestBroadcastService(store, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	sendAt := svc.now().Add(time.Hour)
	id, err := svc.Schedule(context.Background(), BroadcastRequest{
		Text:   "maintenance tonight",
		Target: explicitTarget("1,2,3"),
		SendAt: sendAt,
	})

	require.NoError(t, err)
	assert.Positive(t, id)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "maintenance tonight", store.inserted[0].Text)
	assert.Equal(t, []string{"1", "2", "3"}, store.inserted[0].TargetIDs)
	assert.Equal(t, sendAt, store.inserted[0].SendAt)
}

func TestScheduleZeroTimeDefaultsToNow(t *testing.T) {
	store := &mockMessageStore{}
	svc := newTestBroadcastService(store, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.Schedule(context.Background(), BroadcastRequest{
		Text:   "asap",
		Target: explicitTarget("1"),
	})

	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, svc.now(), store.inserted[0].SendAt)
}

func TestScheduleRejectsFarPastTime(t *testing.T) {
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.Schedule(context.Background(), BroadcastRequest{
		Text:   "too late",
		Target: explicitTarget("1"),
		SendAt: svc.now().Add(-48 * time.Hour),
	})

	assert.Error(t, err)
}

func TestGetMessageNotFound(t *testing.T) {
	svc := newTestBroadcastService(&mockMessageStore{}, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.GetMessage(context.Background(), 99)
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotFound, appErr.Code)
}

func TestRecentLogsClampsLimit(t *testing.T) {
	store := &mockMessageStore{}
	svc := newTestBroadcastService(store, &mockDirectoryManager{}, &mockDirectoryStore{}, &mockDispatcher{})
	ctx := context.Background()

	_, err := svc.RecentLogs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultRecentLogLimit, store.recentLimit)

	_, err = svc.RecentLogs(ctx, 100000)
	require.NoError(t, err)
	assert.Equal(t, constants.MaxRecentLogLimit, store.recentLimit)

	_, err = svc.RecentLogs(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, store.recentLimit)
}

func TestUpsertRecipientNormalizesTags(t *testing.T) {
	directory := &mockDirectoryManager{}
	svc := newTestBroadcastService(&mockMessageStore{}, directory, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.UpsertRecipient(context.Background(), "123", "Ops Channel", []string{" VIP ", "ops", "vip"})
	require.NoError(t, err)

	require.Len(t, directory.saved, 1)
	assert.Equal(t, []string{"vip", "ops"}, directory.saved[0].Tags)
}

func TestUpsertRecipientRejectsBadID(t *testing.T) {
	directory := &mockDirectoryManager{}
	svc := newTestBroadcastService(&mockMessageStore{}, directory, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.UpsertRecipient(context.Background(), "not valid!", "Name", nil)
	assert.Error(t, err)
	assert.Empty(t, directory.saved)
}

func TestGetRecipientNotFound(t *testing.T) {
	directory := &mockDirectoryManager{
		getFn: func(ctx context.Context, id string) (*models.Recipient, error) {
			return nil, nil
		},
	}
	svc := newTestBroadcastService(&mockMessageStore{}, directory, &mockDirectoryStore{}, &mockDispatcher{})

	_, err := svc.GetRecipient(context.Background(), "404")
	require.Error(t, err)
	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotFound, appErr.Code)
}
