package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_order/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	EventOrderPlaced   = "OrderPlaced"
	EventOrderOrphaned = "OrderOrphaned"
)

var ErrEventNotFound = errors.New("outbox event not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Topics struct {
	OrderEvents  string
	OrderOrphans string
}

func DefaultTopics() Topics {
	return Topics{OrderEvents: "order-events", OrderOrphans: "order-orphans"}
}

// Event is one row of the outbox, published to Topic keyed by AggregateID.
type Event struct {
	ID          int64
	AggregateID string
	EventType   string
	Topic       string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type RepoInterface interface {
	Close() error
	RecordOrphanedOrder(ctx context.Context, orphan domain.OrphanedOrder) error
	RecordOrderPlaced(ctx context.Context, event domain.OrderPlaced) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type Repository struct {
	db     *sql.DB
	topics Topics
}

var _ RepoInterface = (*Repository)(nil)

func NewRepository(cred *Credentials, topics Topics) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	return &Repository{db: db, topics: topics}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordOrphanedOrder queues an order for out-of-band cancellation. Recording
// the same order twice is a no-op.
func (r *Repository) RecordOrphanedOrder(ctx context.Context, orphan domain.OrphanedOrder) error {
	return r.insert(ctx, orphan.OrderID, EventOrderOrphaned, r.topics.OrderOrphans, orphan)
}

func (r *Repository) RecordOrderPlaced(ctx context.Context, event domain.OrderPlaced) error {
	return r.insert(ctx, event.OrderID, EventOrderPlaced, r.topics.OrderEvents, event)
}

func (r *Repository) insert(ctx context.Context, aggregateID, eventType, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_id, event_type, topic, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (aggregate_id, event_type) DO NOTHING`,
		aggregateID, eventType, topic, data)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, topic, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Topic, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark outbox event: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
