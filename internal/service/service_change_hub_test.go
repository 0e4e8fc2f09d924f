package service

import (
	"testing"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeHub_RoutesByCollectionAndOwner(t *testing.T) {
	hub := NewChangeHub(4, logger.Nop())

	mine := hub.Subscribe("food_entries", "u1")
	otherCollection := hub.Subscribe("daily_logs", "u1")
	otherOwner := hub.Subscribe("food_entries", "u2")
	require.Equal(t, 3, hub.Count())

	hub.Publish("u1", models.DocumentChange{Type: models.ChangeAdded, Collection: "food_entries", ID: "f1"})

	require.Len(t, mine.C(), 1)
	got := <-mine.C()
	assert.Equal(t, "f1", got.ID)
	assert.Empty(t, otherCollection.C())
	assert.Empty(t, otherOwner.C())
}

func TestChangeHub_Unsubscribe(t *testing.T) {
	hub := NewChangeHub(4, logger.Nop())
	sub := hub.Subscribe("food_entries", "u1")

	hub.Unsubscribe(sub)
	assert.Zero(t, hub.Count())

	_, open := <-sub.C()
	assert.False(t, open)

	assert.NotPanics(t, func() { hub.Unsubscribe(sub) })
	assert.NotPanics(t, func() {
		hub.Publish("u1", models.DocumentChange{Collection: "food_entries", ID: "f1"})
	})
}

func TestChangeHub_DisconnectsLaggingSubscriber(t *testing.T) {
	hub := NewChangeHub(2, logger.Nop())
	slow := hub.Subscribe("food_entries", "u1")

	for _, id := range []string{"a", "b", "c"} {
		hub.Publish("u1", models.DocumentChange{Type: models.ChangeModified, Collection: "food_entries", ID: id})
	}

	assert.Zero(t, hub.Count())

	var received []string
	for change := range slow.C() {
		received = append(received, change.ID)
	}
	assert.Equal(t, []string{"a", "b"}, received)
}

func TestNewChangeHub_DefaultBuffer(t *testing.T) {
	hub := NewChangeHub(0, logger.Nop())
	assert.Equal(t, defaultChangeBuffer, hub.buffer)
}
