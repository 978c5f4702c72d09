package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursehub/notify/pkg/pg"
)

// PostgresStorage is the production Storage implementation backed by the
// notifications table (see pkg/pg migrations). Atomicity of single-row
// create/update is delegated to PostgreSQL.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification storage.
func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

const insertQuery = `
INSERT INTO notifications (id, tenant_id, recipient_id, kind, message, payload, dedupe_key)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
ON CONFLICT (tenant_id, recipient_id, dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
RETURNING created_at`

const selectByDedupeQuery = `
SELECT id, kind, message, payload, read, read_at, created_at
FROM notifications
WHERE tenant_id = $1 AND recipient_id = $2 AND dedupe_key = $3`

func (s *PostgresStorage) Create(ctx context.Context, params CreateParams) (Notification, error) {
	if err := params.Validate(); err != nil {
		return Notification{}, err
	}

	notif := Notification{
		ID:          uuid.New().String(),
		TenantID:    params.TenantID,
		RecipientID: params.RecipientID,
		Kind:        params.Kind,
		Message:     params.Message,
		Payload:     params.Payload,
	}

	err := s.pool.QueryRow(ctx, insertQuery,
		notif.ID, notif.TenantID, notif.RecipientID, string(notif.Kind),
		notif.Message, notif.Payload, params.DedupeKey,
	).Scan(&notif.CreatedAt)
	if err == nil {
		return notif, nil
	}

	// ON CONFLICT DO NOTHING yields no row when a dedupe key collides; the
	// record stored by the first call is the result of this one.
	if params.DedupeKey != "" && pg.IsNotFoundError(err) {
		return s.byDedupeKey(ctx, params)
	}

	return Notification{}, fmt.Errorf("create notification: %w", err)
}

func (s *PostgresStorage) byDedupeKey(ctx context.Context, params CreateParams) (Notification, error) {
	notif := Notification{
		TenantID:    params.TenantID,
		RecipientID: params.RecipientID,
	}
	err := s.pool.QueryRow(ctx, selectByDedupeQuery,
		params.TenantID, params.RecipientID, params.DedupeKey,
	).Scan(&notif.ID, &notif.Kind, &notif.Message, &notif.Payload,
		&notif.Read, &notif.ReadAt, &notif.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("load deduplicated notification: %w", err)
	}
	return notif, nil
}

const listUnreadQuery = `
SELECT id, kind, message, payload, read_at, created_at
FROM notifications
WHERE tenant_id = $1 AND recipient_id = $2 AND read = FALSE
ORDER BY created_at DESC`

func (s *PostgresStorage) ListUnread(ctx context.Context, tenantID, recipientID string) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, listUnreadQuery, tenantID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		n := Notification{
			TenantID:    tenantID,
			RecipientID: recipientID,
		}
		if err := rows.Scan(&n.ID, &n.Kind, &n.Message, &n.Payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return notifications, nil
}

const markReadQuery = `
UPDATE notifications
SET read = TRUE, read_at = COALESCE(read_at, $4)
WHERE tenant_id = $1 AND recipient_id = $2 AND id = $3`

func (s *PostgresStorage) MarkRead(ctx context.Context, tenantID, recipientID, notificationID string) error {
	tag, err := s.pool.Exec(ctx, markReadQuery, tenantID, recipientID, notificationID, time.Now())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	// COALESCE keeps the original read_at, so re-marking an already-read
	// notification still affects a row and stays a no-op.
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

const markAllReadQuery = `
UPDATE notifications
SET read = TRUE, read_at = $3
WHERE tenant_id = $1 AND recipient_id = $2 AND read = FALSE`

func (s *PostgresStorage) MarkAllRead(ctx context.Context, tenantID, recipientID string) error {
	if _, err := s.pool.Exec(ctx, markAllReadQuery, tenantID, recipientID, time.Now()); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

const countUnreadQuery = `
SELECT count(*) FROM notifications
WHERE tenant_id = $1 AND recipient_id = $2 AND read = FALSE`

func (s *PostgresStorage) CountUnread(ctx context.Context, tenantID, recipientID string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, countUnreadQuery, tenantID, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
