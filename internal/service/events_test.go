package service

import (
	"testing"

	"herald/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHubPublishSubscribe(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(models.DeliveryLogEntry{RecipientID: "1", Outcome: models.OutcomeSent})

	entry := <-ch
	assert.Equal(t, "1", entry.RecipientID)
	assert.Equal(t, models.OutcomeSent, entry.Outcome)
}

func TestEventHubMultipleSubscribers(t *testing.T) {
	hub := NewEventHub()

	ch1, cancel1 := hub.Subscribe()
	defer cancel1()
	ch2, cancel2 := hub.Subscribe()
	defer cancel2()

	assert.Equal(t, 2, hub.SubscriberCount())

	hub.Publish(models.DeliveryLogEntry{RecipientID: "7"})

	assert.Equal(t, "7", (<-ch1).RecipientID)
	assert.Equal(t, "7", (<-ch2).RecipientID)
}

func TestEventHubCancelClosesChannel(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount())

	// Idempotent
	cancel()
}

func TestEventHubSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewEventHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	// Overflow the buffer without draining; publish must never block.
	for i := 0; i < subscriberBufferSize+10; i++ {
		hub.Publish(models.DeliveryLogEntry{ID: int64(i)})
	}

	require.Len(t, ch, subscriberBufferSize)
	assert.Equal(t, int64(0), (<-ch).ID, "oldest buffered event survives, overflow is dropped")
}

func TestEventHubPublishWithNoSubscribers(t *testing.T) {
	hub := NewEventHub()
	hub.Publish(models.DeliveryLogEntry{RecipientID: "1"})
	assert.Equal(t, 0, hub.SubscriberCount())
}
