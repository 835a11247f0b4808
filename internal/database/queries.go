package database

// User directory queries
const (
	insertUserQuery = `
		INSERT INTO users (
			id, full_name, username, status, is_admin, is_whitelisted,
			join_date, last_active, media_sent_count, total_messages_sent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectUserQuery = `
		SELECT id, full_name, username, status, is_admin, is_whitelisted,
		       join_date, last_active, media_sent_count, total_messages_sent
		FROM users
		WHERE id = ?
	`

	selectAllUsersQuery = `
		SELECT id, full_name, username, status, is_admin, is_whitelisted,
		       join_date, last_active, media_sent_count, total_messages_sent
		FROM users
		ORDER BY id
	`

	selectUsersByStatusQuery = `
		SELECT id, full_name, username, status, is_admin, is_whitelisted,
		       join_date, last_active, media_sent_count, total_messages_sent
		FROM users
		WHERE status = ?
		ORDER BY id
	`

	selectInactiveUsersQuery = `
		SELECT id, full_name, username, status, is_admin, is_whitelisted,
		       join_date, last_active, media_sent_count, total_messages_sent
		FROM users
		WHERE status = 'active' AND is_whitelisted = 0 AND last_active < ?
		ORDER BY id
	`

	updateUserStatusQuery = `
		UPDATE users SET status = ? WHERE id = ?
	`

	updateUserInfoQuery = `
		UPDATE users SET full_name = ?, username = ? WHERE id = ?
	`

	updateUserAdminQuery = `
		UPDATE users SET is_admin = ? WHERE id = ?
	`

	updateUserWhitelistQuery = `
		UPDATE users SET is_whitelisted = ? WHERE id = ?
	`

	updateUserLastActiveQuery = `
		UPDATE users SET last_active = ? WHERE id = ?
	`

	incrementUserStatsQuery = `
		UPDATE users
		SET media_sent_count = media_sent_count + ?,
		    total_messages_sent = total_messages_sent + ?
		WHERE id = ?
	`

	upsertAdminUserQuery = `
		INSERT INTO users (id, full_name, username, status, is_admin, is_whitelisted, join_date, last_active)
		VALUES (?, ?, '', 'active', 1, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET is_admin = 1, is_whitelisted = 1, status = 'active'
	`
)

// Relay log queries. The merge-append semantics of record() come from the
// per-recipient row layout with a unique (original, recipient) key.
const (
	upsertRelayedMessageQuery = `
		INSERT INTO relayed_messages (original_message_id, sender_id, recipient_id, relayed_message_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(original_message_id, recipient_id) DO NOTHING
	`

	selectRelayedByOriginalQuery = `
		SELECT original_message_id, sender_id, recipient_id, relayed_message_id, created_at
		FROM relayed_messages
		WHERE original_message_id = ?
	`

	selectOriginalByCopyQuery = `
		SELECT original_message_id
		FROM relayed_messages
		WHERE recipient_id = ? AND relayed_message_id = ?
	`

	deleteRelayedByOriginalQuery = `
		DELETE FROM relayed_messages WHERE original_message_id = ?
	`
)

// Bot config queries
const (
	upsertConfigValueQuery = `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`

	selectConfigValueQuery = `
		SELECT value FROM bot_config WHERE key = ?
	`

	deleteConfigValueQuery = `
		DELETE FROM bot_config WHERE key = ?
	`
)
