package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relayhub/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	fullName, err := d.encryptor.EncryptIfEnabled(user.FullName)
	if err != nil {
		return fmt.Errorf("failed to encrypt full name: %w", err)
	}
	username, err := d.encryptor.EncryptIfEnabled(user.Username)
	if err != nil {
		return fmt.Errorf("failed to encrypt username: %w", err)
	}

	_, err = d.db.ExecContext(ctx, insertUserQuery,
		user.ID,
		fullName,
		username,
		user.Status,
		user.IsAdmin,
		user.IsWhitelisted,
		user.JoinDate,
		user.LastActive,
		user.MediaSentCount,
		user.TotalMessagesSent,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// EnsureAdminUser upserts an initial administrator account. Existing rows
// keep their profile fields and only gain the admin/whitelist flags.
func (d *Database) EnsureAdminUser(ctx context.Context, id int64) error {
	fullName, err := d.encryptor.EncryptIfEnabled("Initial Admin")
	if err != nil {
		return fmt.Errorf("failed to encrypt full name: %w", err)
	}
	now := time.Now().UTC()
	if _, err := d.db.ExecContext(ctx, upsertAdminUserQuery, id, fullName, now, now); err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}
	return nil
}

func (d *Database) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := d.db.QueryRowContext(ctx, selectUserQuery, id)
	user, err := d.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (d *Database) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return d.queryUsers(ctx, selectAllUsersQuery)
}

func (d *Database) GetActiveUsers(ctx context.Context) ([]models.User, error) {
	return d.queryUsers(ctx, selectUsersByStatusQuery, models.UserStatusActive)
}

func (d *Database) FindInactiveUsers(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	return d.queryUsers(ctx, selectInactiveUsersQuery, cutoff)
}

func (d *Database) UpdateUserStatus(ctx context.Context, id int64, status models.UserStatus) error {
	if err := d.execForUser(ctx, updateUserStatusQuery, status, id); err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return nil
}

func (d *Database) UpdateUserInfo(ctx context.Context, id int64, fullName, username string) error {
	encName, err := d.encryptor.EncryptIfEnabled(fullName)
	if err != nil {
		return fmt.Errorf("failed to encrypt full name: %w", err)
	}
	encUsername, err := d.encryptor.EncryptIfEnabled(username)
	if err != nil {
		return fmt.Errorf("failed to encrypt username: %w", err)
	}
	if err := d.execForUser(ctx, updateUserInfoQuery, encName, encUsername, id); err != nil {
		return fmt.Errorf("failed to update user info: %w", err)
	}
	return nil
}

func (d *Database) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	if err := d.execForUser(ctx, updateUserAdminQuery, isAdmin, id); err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	return nil
}

func (d *Database) SetWhitelisted(ctx context.Context, id int64, whitelisted bool) error {
	if err := d.execForUser(ctx, updateUserWhitelistQuery, whitelisted, id); err != nil {
		return fmt.Errorf("failed to set whitelist flag: %w", err)
	}
	return nil
}

func (d *Database) UpdateLastActive(ctx context.Context, id int64) error {
	if err := d.execForUser(ctx, updateUserLastActiveQuery, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

func (d *Database) IncrementUserStats(ctx context.Context, id int64, mediaDelta, messageDelta int64) error {
	if mediaDelta == 0 && messageDelta == 0 {
		return nil
	}
	if err := d.execForUser(ctx, incrementUserStatsQuery, mediaDelta, messageDelta, id); err != nil {
		return fmt.Errorf("failed to increment user stats: %w", err)
	}
	return nil
}

func (d *Database) execForUser(ctx context.Context, query string, args ...interface{}) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (d *Database) queryUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var users []models.User
	for rows.Next() {
		user, err := d.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var fullName, username string
	err := row.Scan(
		&user.ID,
		&fullName,
		&username,
		&user.Status,
		&user.IsAdmin,
		&user.IsWhitelisted,
		&user.JoinDate,
		&user.LastActive,
		&user.MediaSentCount,
		&user.TotalMessagesSent,
	)
	if err != nil {
		return nil, err
	}

	user.FullName, err = d.encryptor.DecryptIfEnabled(fullName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt full name: %w", err)
	}
	user.Username, err = d.encryptor.DecryptIfEnabled(username)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt username: %w", err)
	}
	return &user, nil
}
