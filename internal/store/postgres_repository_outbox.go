package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/scholarbridge/request-service/internal/domain"
)

// EnqueueOutboxTasks writes tasks outside of any state transition.
func (r *PostgresRepository) EnqueueOutboxTasks(ctx context.Context, tasks []domain.OutboxTask) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := enqueueOutboxTasksTx(ctx, tx, tasks); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func enqueueOutboxTasksTx(ctx context.Context, tx pgx.Tx, tasks []domain.OutboxTask) error {
	for _, task := range tasks {
		_, err := tx.Exec(ctx, `
			INSERT INTO side_effect_outbox (kind, payload)
			VALUES ($1, $2::jsonb)
		`, strings.TrimSpace(task.Kind), string(task.Payload))
		if err != nil {
			return fmt.Errorf("failed to enqueue outbox task: %w", err)
		}
	}
	return nil
}

// ClaimOutboxTasks marks a batch of due tasks as processing. Tasks stuck in processing for longer
// than staleAfterSeconds are reclaimed, which covers a dispatcher that died mid-batch.
func (r *PostgresRepository) ClaimOutboxTasks(ctx context.Context, limit int, staleAfterSeconds int) ([]domain.OutboxTask, error) {
	if limit <= 0 {
		limit = 50
	}
	if staleAfterSeconds <= 0 {
		staleAfterSeconds = 120
	}

	query := `
		WITH candidates AS (
			SELECT id
			FROM side_effect_outbox
			WHERE (
				(status = 'pending' AND next_attempt_at <= NOW())
				OR (status = 'processing' AND processing_started_at < NOW() - ($2 * INTERVAL '1 second'))
			)
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE side_effect_outbox AS o
		SET status = 'processing',
			processing_started_at = NOW(),
			attempts = o.attempts + 1
		FROM candidates
		WHERE o.id = candidates.id
		RETURNING o.id, o.kind, o.payload::text, o.attempts
	`

	rows, err := r.db.Query(ctx, query, limit, staleAfterSeconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.OutboxTask, 0, limit)
	for rows.Next() {
		var (
			task        domain.OutboxTask
			payloadText string
		)
		if err := rows.Scan(&task.ID, &task.Kind, &payloadText, &task.Attempts); err != nil {
			return nil, err
		}
		task.Payload = []byte(payloadText)
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *PostgresRepository) MarkOutboxTaskDone(ctx context.Context, taskID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE side_effect_outbox
		SET status = 'done',
			completed_at = NOW(),
			processing_started_at = NULL,
			last_error = NULL
		WHERE id = $1
	`, taskID)
	return err
}

func (r *PostgresRepository) MarkOutboxTaskFailed(ctx context.Context, taskID int64, retryAfterSeconds int, reason string) error {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	reason = truncateErrorText(reason)
	_, err := r.db.Exec(ctx, `
		UPDATE side_effect_outbox
		SET status = 'pending',
			next_attempt_at = NOW() + ($2 * INTERVAL '1 second'),
			processing_started_at = NULL,
			last_error = $3
		WHERE id = $1
	`, taskID, retryAfterSeconds, reason)
	return err
}
