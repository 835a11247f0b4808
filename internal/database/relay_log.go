package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relayhub/internal/models"
)

// RecordRelayedMessages merge-appends recipient copies for one original
// message. Re-recording an existing (original, recipient) pair is a no-op,
// which keeps the at-most-one-copy-per-recipient invariant under replays.
func (d *Database) RecordRelayedMessages(ctx context.Context, originalID int, senderID int64, relayedTo map[int64]int) error {
	if len(relayedTo) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for recipientID, relayedID := range relayedTo {
		if _, err := tx.ExecContext(ctx, upsertRelayedMessageQuery, originalID, senderID, recipientID, relayedID, now); err != nil {
			return fmt.Errorf("failed to record relayed message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit relay log entries: %w", err)
	}
	return nil
}

// GetRelayedMessage assembles the relay log entry for an original message,
// or returns nil when the message was never relayed.
func (d *Database) GetRelayedMessage(ctx context.Context, originalID int) (*models.RelayLogEntry, error) {
	rows, err := d.db.QueryContext(ctx, selectRelayedByOriginalQuery, originalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query relayed messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entry *models.RelayLogEntry
	for rows.Next() {
		var (
			origID      int
			senderID    int64
			recipientID int64
			relayedID   int
			createdAt   time.Time
		)
		if err := rows.Scan(&origID, &senderID, &recipientID, &relayedID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan relayed message: %w", err)
		}
		if entry == nil {
			entry = &models.RelayLogEntry{
				OriginalMessageID: origID,
				SenderID:          senderID,
				RelayedTo:         make(map[int64]int),
				Timestamp:         createdAt,
			}
		}
		entry.RelayedTo[recipientID] = relayedID
		if createdAt.Before(entry.Timestamp) {
			entry.Timestamp = createdAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relayed messages: %w", err)
	}
	return entry, nil
}

// GetRelayedMessageByCopy resolves a relayed copy (a message the bot sent to
// recipientID) back to the full entry for its original message. Used when a
// user replies to someone else's relayed content.
func (d *Database) GetRelayedMessageByCopy(ctx context.Context, recipientID int64, relayedID int) (*models.RelayLogEntry, error) {
	var originalID int
	err := d.db.QueryRowContext(ctx, selectOriginalByCopyQuery, recipientID, relayedID).Scan(&originalID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up relayed copy: %w", err)
	}
	return d.GetRelayedMessage(ctx, originalID)
}

func (d *Database) DeleteRelayedMessage(ctx context.Context, originalID int) error {
	if _, err := d.db.ExecContext(ctx, deleteRelayedByOriginalQuery, originalID); err != nil {
		return fmt.Errorf("failed to delete relay log entry: %w", err)
	}
	return nil
}

// SetConfigValue upserts a bot configuration value; an empty value deletes
// the key.
func (d *Database) SetConfigValue(ctx context.Context, key, value string) error {
	if value == "" {
		if _, err := d.db.ExecContext(ctx, deleteConfigValueQuery, key); err != nil {
			return fmt.Errorf("failed to delete config value: %w", err)
		}
		return nil
	}
	if _, err := d.db.ExecContext(ctx, upsertConfigValueQuery, key, value); err != nil {
		return fmt.Errorf("failed to set config value: %w", err)
	}
	return nil
}

func (d *Database) GetConfigValue(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, selectConfigValueQuery, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config value: %w", err)
	}
	return value, nil
}
