package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"whatsapp-console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live server only when MONGODB_TEST_URI is set.
func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("whatsapp_test_%d", time.Now().UnixNano())
	store, err := ConnectMongo(ctx, uri, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Database().Drop(ctx)
		store.Close(ctx)
	})
	return store
}

func TestMongoStore_MessagesAndStatus(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertMessage(ctx, &models.Message{
		From: "system", To: "111", Text: "later", Direction: models.DirectionOutgoing,
		MessageID: "wamid.2", Timestamp: base.Add(time.Minute),
	}))
	require.NoError(t, store.InsertMessage(ctx, &models.Message{
		From: "111", To: "1555", Text: "earlier", Direction: models.DirectionIncoming, Timestamp: base,
	}))

	got, err := store.MessagesFor(ctx, "111")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "earlier", got[0].Text)
	assert.Equal(t, "later", got[1].Text)

	n, err := store.UpdateMessageStatus(ctx, "wamid.2", models.StatusDelivered, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMongoStore_Contacts(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertContact(ctx, models.ContactTouch{PhoneNumber: "111"}))
	require.NoError(t, store.UpsertContact(ctx, models.ContactTouch{PhoneNumber: "111", Name: "Ayesha", Inbound: true}))

	contacts, err := store.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ayesha", contacts[0].Name)
	assert.Equal(t, 2, contacts[0].MessageCount)
	assert.True(t, contacts[0].Unread)

	yes := true
	require.NoError(t, store.UpdateContactFlags(ctx, "111", models.ContactFlags{Favorite: &yes}))
	assert.ErrorIs(t, store.UpdateContactFlags(ctx, "999", models.ContactFlags{Favorite: &yes}), ErrNotFound)
}

func TestMongoStore_StatusFailureAndDuplicate(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()

	msg := &models.Message{From: "system", To: "111", Text: "hi", Direction: models.DirectionOutgoing, MessageID: "wamid.9"}
	require.NoError(t, store.InsertMessage(ctx, msg))
	assert.ErrorIs(t, store.InsertMessage(ctx, msg), ErrDuplicate)

	failure := &models.MessageError{Code: "131026", Message: "Message undeliverable"}
	n, err := store.UpdateMessageStatus(ctx, "wamid.9", models.StatusFailed, failure)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.MessagesFor(ctx, "111")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, "131026", got[0].Error.Code)
}

func TestConnectMongo_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ConnectMongo(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200", "whatsapp_unreachable")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
}
