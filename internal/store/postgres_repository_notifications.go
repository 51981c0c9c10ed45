package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scholarbridge/request-service/internal/domain"
)

// CreateNotification inserts an inbox item. Redelivered outbox tasks reuse the same id, so a
// duplicate insert is ignored.
func (r *PostgresRepository) CreateNotification(ctx context.Context, item domain.Notification) error {
	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	priority := item.Priority
	if priority == "" {
		priority = domain.NotificationPriorityNormal
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO notifications (
			id, recipient_id, recipient_model, type, title, message,
			related_entity_type, related_entity_id, priority, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
		ON CONFLICT (id) DO NOTHING
	`,
		item.ID,
		item.Recipient.ID,
		string(item.Recipient.Model),
		item.Type,
		item.Title,
		item.Message,
		item.RelatedEntityType,
		item.RelatedEntityID,
		priority,
		string(metadataJSON),
	)
	return err
}

// ListNotifications retrieves paginated inbox notifications, newest first.
func (r *PostgresRepository) ListNotifications(ctx context.Context, recipient domain.UserRef, opts domain.NotificationListOptions) ([]domain.Notification, error) {
	limit := ClampLimit(opts.Limit, 50, 100)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT
			id, recipient_id, recipient_model, type, title, message,
			related_entity_type, related_entity_id, is_read, read_at, priority, metadata, created_at
		FROM notifications
		WHERE recipient_id = $1
		  AND recipient_model = $2
		  AND is_deleted = FALSE
	`
	args := []interface{}{recipient.ID, string(recipient.Model)}
	argPos := 3
	if opts.UnreadOnly {
		query += " AND is_read = FALSE"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var (
			item    domain.Notification
			model   string
			payload []byte
		)
		if err := rows.Scan(
			&item.ID,
			&item.Recipient.ID,
			&model,
			&item.Type,
			&item.Title,
			&item.Message,
			&item.RelatedEntityType,
			&item.RelatedEntityID,
			&item.IsRead,
			&item.ReadAt,
			&item.Priority,
			&payload,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.Recipient.Model = domain.UserModel(model)
		item.Metadata = map[string]interface{}{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &item.Metadata); err != nil {
				return nil, err
			}
		}
		results = append(results, item)
	}

	return results, rows.Err()
}

func (r *PostgresRepository) CountUnreadNotifications(ctx context.Context, recipient domain.UserRef) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
		  AND recipient_model = $2
		  AND is_read = FALSE
		  AND is_deleted = FALSE
	`, recipient.ID, string(recipient.Model)).Scan(&count)
	return count, err
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE,
			read_at = COALESCE(read_at, NOW())
		WHERE id = $1
		  AND recipient_id = $2
		  AND recipient_model = $3
		  AND is_deleted = FALSE
	`, notificationID, recipient.ID, string(recipient.Model))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) MarkAllNotificationsRead(ctx context.Context, recipient domain.UserRef) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE,
			read_at = COALESCE(read_at, NOW())
		WHERE recipient_id = $1
		  AND recipient_model = $2
		  AND is_read = FALSE
		  AND is_deleted = FALSE
	`, recipient.ID, string(recipient.Model))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) SoftDeleteNotification(ctx context.Context, recipient domain.UserRef, notificationID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_deleted = TRUE
		WHERE id = $1
		  AND recipient_id = $2
		  AND recipient_model = $3
		  AND is_deleted = FALSE
	`, notificationID, recipient.ID, string(recipient.Model))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteReadNotificationsBefore hard-deletes read notifications created before cutoff.
func (r *PostgresRepository) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE is_read = TRUE
		  AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
