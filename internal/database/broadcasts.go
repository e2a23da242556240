package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"herald/internal/models"
)

// Scheduled-message store. This store is the sole writer of the status column;
// the one-way PENDING -> DISPATCHING -> SENT|FAILED lifecycle is enforced here
// by conditional updates, not by callers.

// InsertScheduledMessage persists a broadcast with its resolved target
// snapshot and returns the assigned id. Status starts as PENDING.
func (d *Database) InsertScheduledMessage(ctx context.Context, msg *models.ScheduledMessage) (int64, error) {
	encryptedBody, err := d.encryptor.EncryptIfEnabled(msg.Text)
	if err != nil {
		return 0, fmt.Errorf("failed to encrypt message body: %w", err)
	}

	targets, err := json.Marshal(msg.TargetIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal target ids: %w", err)
	}

	var mediaURL, mediaKind *string
	if msg.Media != nil {
		mediaURL = &msg.Media.URL
		kind := string(msg.Media.Kind)
		mediaKind = &kind
	}

	var id int64
	err = retryableDBOperationNoReturn(ctx, func() error {
		query := `
			INSERT INTO scheduled_messages (body, target_ids, media_url, media_kind, send_at, status)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		result, err := d.db.ExecContext(ctx, query,
			encryptedBody, string(targets), mediaURL, mediaKind, msg.SendAt.UTC(), models.StatusPending)
		if err != nil {
			return fmt.Errorf("failed to insert scheduled message: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read scheduled message id: %w", err)
		}
		return nil
	}, "insert scheduled message")
	if err != nil {
		return 0, err
	}

	return id, nil
}

// DueMessages returns all PENDING messages whose send time has passed,
// ordered by send time then id for deterministic dispatch order.
func (d *Database) DueMessages(ctx context.Context, now time.Time) ([]models.ScheduledMessage, error) {
	query := `
		SELECT id, body, target_ids, media_url, media_kind, send_at, status, claimed_at, created_at, updated_at
		FROM scheduled_messages
		WHERE status = ? AND send_at <= ?
		ORDER BY send_at ASC, id ASC
	`

	rows, err := d.db.QueryContext(ctx, query, models.StatusPending, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ScheduledMessage
	for rows.Next() {
		msg, err := d.scanScheduledMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due messages: %w", err)
	}

	return messages, nil
}

// GetScheduledMessage retrieves one message by id, or nil when absent.
func (d *Database) GetScheduledMessage(ctx context.Context, id int64) (*models.ScheduledMessage, error) {
	query := `
		SELECT id, body, target_ids, media_url, media_kind, send_at, status, claimed_at, created_at, updated_at
		FROM scheduled_messages
		WHERE id = ?
	`

	row := d.db.QueryRowContext(ctx, query, id)
	msg, err := d.scanScheduledMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return msg, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanScheduledMessage(row rowScanner) (*models.ScheduledMessage, error) {
	msg := &models.ScheduledMessage{}
	var encryptedBody, targets string
	var mediaURL, mediaKind *string

	err := row.Scan(
		&msg.ID,
		&encryptedBody,
		&targets,
		&mediaURL,
		&mediaKind,
		&msg.SendAt,
		&msg.Status,
		&msg.ClaimedAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan scheduled message: %w", err)
	}

	msg.Text, err = d.encryptor.DecryptIfEnabled(encryptedBody)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message body: %w", err)
	}
	if err := json.Unmarshal([]byte(targets), &msg.TargetIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target ids: %w", err)
	}
	if mediaURL != nil && mediaKind != nil && *mediaURL != "" {
		msg.Media = &models.MediaRef{URL: *mediaURL, Kind: models.MediaKind(*mediaKind)}
	}

	return msg, nil
}

// ClaimMessage atomically moves a message from PENDING to DISPATCHING.
// Returns false when another loop instance won the claim (or the message
// already reached a terminal state), in which case it must not be dispatched.
func (d *Database) ClaimMessage(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE scheduled_messages
		SET status = ?, claimed_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := d.db.ExecContext(ctx, query, models.StatusDispatching, time.Now().UTC(), id, models.StatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim message: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows == 1, nil
}

// FinalizeMessage moves a DISPATCHING message to its terminal status.
// Terminal rows are never updated again.
func (d *Database) FinalizeMessage(ctx context.Context, id int64, status models.MessageStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("refusing to finalize message %d with non-terminal status %s", id, status)
	}

	return retryableDBOperationNoReturn(ctx, func() error {
		query := `
			UPDATE scheduled_messages
			SET status = ?, claimed_at = NULL
			WHERE id = ? AND status = ?
		`

		result, err := d.db.ExecContext(ctx, query, status, id, models.StatusDispatching)
		if err != nil {
			return fmt.Errorf("failed to finalize message: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("no dispatching message with id %d", id)
		}
		return nil
	}, "finalize message")
}

// ReleaseStaleClaims reverts DISPATCHING messages whose claim outlived the
// lease back to PENDING, so a crashed loop instance cannot strand them.
// Returns the number of released messages.
func (d *Database) ReleaseStaleClaims(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		UPDATE scheduled_messages
		SET status = ?, claimed_at = NULL
		WHERE status = ? AND claimed_at < ?
	`

	result, err := d.db.ExecContext(ctx, query, models.StatusPending, models.StatusDispatching, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	return result.RowsAffected()
}

// CountPendingMessages returns the number of messages awaiting dispatch.
func (d *Database) CountPendingMessages(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_messages WHERE status = ?`, models.StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending messages: %w", err)
	}
	return count, nil
}

// Delivery log store. Rows are append-only and never mutated.

// AppendDeliveryLog records one per-recipient delivery attempt.
func (d *Database) AppendDeliveryLog(ctx context.Context, entry *models.DeliveryLogEntry) error {
	var detail *string
	if entry.Detail != "" {
		detail = &entry.Detail
	}

	return retryableDBOperationNoReturn(ctx, func() error {
		query := `
			INSERT INTO delivery_logs (message_id, recipient_id, outcome, detail)
			VALUES (?, ?, ?, ?)
		`
		if _, err := d.db.ExecContext(ctx, query, entry.MessageID, entry.RecipientID, entry.Outcome, detail); err != nil {
			return fmt.Errorf("failed to append delivery log: %w", err)
		}
		return nil
	}, "append delivery log")
}

// DeliveryLogStats returns aggregate counts per outcome.
func (d *Database) DeliveryLogStats(ctx context.Context) (map[models.DeliveryOutcome]int64, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM delivery_logs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery log stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.DeliveryOutcome]int64)
	for rows.Next() {
		var outcome models.DeliveryOutcome
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log stats: %w", err)
		}
		stats[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery log stats: %w", err)
	}

	return stats, nil
}

// RecentDeliveryLogs returns the newest log entries, newest first.
func (d *Database) RecentDeliveryLogs(ctx context.Context, limit int) ([]models.DeliveryLogEntry, error) {
	query := `
		SELECT id, message_id, recipient_id, outcome, detail, created_at
		FROM delivery_logs
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query delivery logs: %w", err)
	}
	defer rows.Close()

	var entries []models.DeliveryLogEntry
	for rows.Next() {
		var entry models.DeliveryLogEntry
		var detail *string
		if err := rows.Scan(&entry.ID, &entry.MessageID, &entry.RecipientID, &entry.Outcome, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		if detail != nil {
			entry.Detail = *detail
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery logs: %w", err)
	}

	return entries, nil
}
