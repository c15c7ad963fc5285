package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fjod/go_order/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds, DefaultTopics())
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestGetUnprocessedEvents_Empty(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	events, err := repo.GetUnprocessedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecordOrphanedOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	orphan := domain.OrphanedOrder{OrderID: "o1", Cause: "intent failed", DetectedAt: time.Now().UTC()}
	require.NoError(t, repo.RecordOrphanedOrder(ctx, orphan))
	// duplicate is ignored
	require.NoError(t, repo.RecordOrphanedOrder(ctx, orphan))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "o1", e.AggregateID)
	assert.Equal(t, EventOrderOrphaned, e.EventType)
	assert.Equal(t, "order-orphans", e.Topic)

	var got domain.OrphanedOrder
	require.NoError(t, json.Unmarshal(e.Payload, &got))
	assert.Equal(t, "intent failed", got.Cause)
}

func TestRecordOrderPlaced_AndMarkProcessed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.RecordOrderPlaced(ctx, domain.OrderPlaced{
		OrderID:       "o2",
		RestaurantID:  "r1",
		Channel:       domain.ChannelDelivery,
		PaymentMethod: domain.PaymentCash,
		Subtotal:      12.5,
		PlacedAt:      time.Now(),
	}))
	require.NoError(t, repo.RecordOrphanedOrder(ctx, domain.OrphanedOrder{OrderID: "o3"}))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderPlaced, events[0].EventType)
	assert.Equal(t, "order-events", events[0].Topic)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	assert.ErrorIs(t, repo.MarkEventAsProcessed(ctx, events[0].ID), ErrEventNotFound)

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "o3", events[0].AggregateID)
}

func TestGetUnprocessedEvents_Limit(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.RecordOrphanedOrder(ctx, domain.OrphanedOrder{OrderID: id}))
	}

	events, err := repo.GetUnprocessedEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].AggregateID)
	assert.Equal(t, "b", events[1].AggregateID)
}
