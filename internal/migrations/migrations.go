package migrations

// initialSchema is the embedded v1 schema. The binary runs it on every start;
// all statements are idempotent.
const initialSchema = `
CREATE TABLE IF NOT EXISTS recipients (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT 'User',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Tags are a real set, one row per (recipient, tag). Tag values are stored
-- lowercased so lookups are exact matches, never substring scans.
CREATE TABLE IF NOT EXISTS recipient_tags (
    recipient_id TEXT NOT NULL REFERENCES recipients(id) ON DELETE CASCADE,
    tag TEXT NOT NULL,
    PRIMARY KEY (recipient_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_recipient_tags_tag ON recipient_tags(tag);

CREATE TABLE IF NOT EXISTS scheduled_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    body TEXT NOT NULL,
    target_ids TEXT NOT NULL DEFAULT '[]',
    media_url TEXT,
    media_kind TEXT,
    send_at DATETIME NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    claimed_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_scheduled_status_send_at ON scheduled_messages(status, send_at);

CREATE TRIGGER IF NOT EXISTS scheduled_messages_updated_at
AFTER UPDATE ON scheduled_messages
BEGIN
    UPDATE scheduled_messages SET updated_at = CURRENT_TIMESTAMP
    WHERE id = NEW.id;
END;

CREATE TABLE IF NOT EXISTS delivery_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id INTEGER,
    recipient_id TEXT NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_delivery_logs_outcome ON delivery_logs(outcome);
CREATE INDEX IF NOT EXISTS idx_delivery_logs_message ON delivery_logs(message_id);
`

// GetInitialSchema returns the initial database schema
func GetInitialSchema() string {
	return initialSchema
}
