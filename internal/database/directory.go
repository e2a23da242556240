package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"herald/internal/models"
)

// Directory operations

// SaveRecipient inserts or updates a recipient. The id is the natural key;
// display name and tag set are overwritten. Tags must already be normalized
// (lowercased, trimmed) by the caller.
func (d *Database) SaveRecipient(ctx context.Context, recipient *models.Recipient) error {
	encryptedName, err := d.encryptor.EncryptIfEnabled(recipient.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to encrypt display name: %w", err)
	}

	return retryableDBOperationNoReturn(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		query := `
			INSERT INTO recipients (id, display_name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				updated_at = CURRENT_TIMESTAMP
		`
		if _, err := tx.ExecContext(ctx, query, recipient.ID, encryptedName); err != nil {
			return fmt.Errorf("failed to save recipient: %w", err)
		}

		// Tag set is replaced wholesale on every upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipient_tags WHERE recipient_id = ?`, recipient.ID); err != nil {
			return fmt.Errorf("failed to clear recipient tags: %w", err)
		}
		for _, tag := range recipient.Tags {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO recipient_tags (recipient_id, tag) VALUES (?, ?)`,
				recipient.ID, tag); err != nil {
				return fmt.Errorf("failed to save recipient tag: %w", err)
			}
		}

		return tx.Commit()
	}, "save recipient")
}

// GetRecipient retrieves a recipient by id, or nil when absent.
func (d *Database) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	query := `
		SELECT r.id, r.display_name, r.created_at, r.updated_at,
		       COALESCE(GROUP_CONCAT(t.tag), '')
		FROM recipients r
		LEFT JOIN recipient_tags t ON t.recipient_id = r.id
		WHERE r.id = ?
		GROUP BY r.id
	`

	recipient := &models.Recipient{}
	var encryptedName, tagList string

	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&recipient.ID,
		&encryptedName,
		&recipient.CreatedAt,
		&recipient.UpdatedAt,
		&tagList,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	recipient.DisplayName, err = d.encryptor.DecryptIfEnabled(encryptedName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt display name: %w", err)
	}
	recipient.Tags = splitTagList(tagList)

	return recipient, nil
}

// ListRecipients returns every recipient ordered by display name. Ordering
// happens after decryption since encrypted names do not sort meaningfully.
func (d *Database) ListRecipients(ctx context.Context) ([]models.Recipient, error) {
	query := `
		SELECT r.id, r.display_name, r.created_at, r.updated_at,
		       COALESCE(GROUP_CONCAT(t.tag), '')
		FROM recipients r
		LEFT JOIN recipient_tags t ON t.recipient_id = r.id
		GROUP BY r.id
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var recipient models.Recipient
		var encryptedName, tagList string
		if err := rows.Scan(&recipient.ID, &encryptedName, &recipient.CreatedAt, &recipient.UpdatedAt, &tagList); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipient.DisplayName, err = d.encryptor.DecryptIfEnabled(encryptedName)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt display name: %w", err)
		}
		recipient.Tags = splitTagList(tagList)
		recipients = append(recipients, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipients: %w", err)
	}

	sort.Slice(recipients, func(i, j int) bool {
		if recipients[i].DisplayName != recipients[j].DisplayName {
			return recipients[i].DisplayName < recipients[j].DisplayName
		}
		return recipients[i].ID < recipients[j].ID
	})

	return recipients, nil
}

// ListRecipientIDs returns every directory id.
func (d *Database) ListRecipientIDs(ctx context.Context) ([]string, error) {
	return d.queryIDs(ctx, `SELECT id FROM recipients ORDER BY id`)
}

// ListRecipientIDsByTag returns ids whose tag set contains the given tag.
// The match is exact on the stored (lowercased) tag value.
func (d *Database) ListRecipientIDsByTag(ctx context.Context, tag string) ([]string, error) {
	return d.queryIDs(ctx, `SELECT recipient_id FROM recipient_tags WHERE tag = ? ORDER BY recipient_id`, tag)
}

// ListTags returns all distinct tags in use.
func (d *Database) ListTags(ctx context.Context) ([]string, error) {
	return d.queryIDs(ctx, `SELECT DISTINCT tag FROM recipient_tags ORDER BY tag`)
}

func (d *Database) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}
	return ids, nil
}

func splitTagList(tagList string) []string {
	if tagList == "" {
		return nil
	}
	tags := strings.Split(tagList, ",")
	sort.Strings(tags)
	return tags
}
