package mongodb

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
)

// newTestStores connects to MONGO_TEST_URI and migrates a throwaway database.
func newTestStores(t *testing.T) *repository.Stores {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	name := "agencia_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db := &DB{Client: client, Database: client.Database(name)}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Database.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	require.NoError(t, Migrate(ctx, db))
	return NewStores(db)
}

func newSession(userID *models.ObjectID) *models.ChatSession {
	return &models.ChatSession{
		UUID:      uuid.NewString(),
		Category:  models.DefaultCategory,
		Status:    models.SessionStatusOpen,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
}

func TestChatSessionOpenTicketPerUser(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)

	userID := models.NewObjectID()
	first := newSession(&userID)
	require.NoError(t, stores.Sessions.Create(ctx, first))

	err := stores.Sessions.Create(ctx, newSession(&userID))
	assert.ErrorIs(t, err, models.ErrOpenTicketExists)

	// anonymous tickets are outside the partial index
	require.NoError(t, stores.Sessions.Create(ctx, newSession(nil)))
	require.NoError(t, stores.Sessions.Create(ctx, newSession(nil)))

	open, err := stores.Sessions.GetOpenByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.UUID, open.UUID)

	_, err = stores.Sessions.Close(ctx, first.ID, time.Now().UTC())
	require.NoError(t, err)
	_, err = stores.Sessions.GetOpenByUserID(ctx, userID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	latest, err := stores.Sessions.GetLatestByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.UUID, latest.UUID)
	assert.Equal(t, models.SessionStatusClosed, latest.Status)

	second := newSession(&userID)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, stores.Sessions.Create(ctx, second), "closing frees the slot")

	latest, err = stores.Sessions.GetLatestByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.UUID, latest.UUID)
}

func TestNextNumberIsSequential(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)

	first, err := stores.Sessions.NextNumber(ctx)
	require.NoError(t, err)
	second, err := stores.Sessions.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestOutboxClaimDue(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	due := &models.EmailOutbox{To: []string{"a@b.c"}, Status: models.OutboxStatusPending, NextAttemptAt: now.Add(-time.Minute), CreatedAt: now}
	later := &models.EmailOutbox{To: []string{"a@b.c"}, Status: models.OutboxStatusPending, NextAttemptAt: now.Add(time.Hour), CreatedAt: now}
	for _, m := range []*models.EmailOutbox{due, later} {
		require.NoError(t, stores.Outbox.Create(ctx, m))
	}

	lease := now.Add(5 * time.Minute)
	claimed, err := stores.Outbox.ClaimDue(ctx, now, lease, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)
	assert.True(t, claimed[0].NextAttemptAt.Equal(lease))

	again, err := stores.Outbox.ClaimDue(ctx, now, lease, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = stores.Outbox.ClaimDue(ctx, now, now, 10)
	assert.Error(t, err)
}
