package database

import (
	"context"
	"database/sql"

	"slotboard/internal/models"
)

// GetCredential returns the stored credential for username, or nil when the
// username is unknown.
func (db *DB) GetCredential(ctx context.Context, username string) (*models.Credential, error) {
	var c models.Credential
	err := db.QueryRowContext(ctx,
		"SELECT username, password_hash, created_at FROM user_credentials WHERE username = ?",
		models.NormalizeIdentity(username),
	).Scan(&c.Username, &c.PasswordHash, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCredential stores a new credential record.
func (db *DB) CreateCredential(ctx context.Context, c *models.Credential) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO user_credentials (username, password_hash, created_at) VALUES (?, ?, ?)",
		c.Username, c.PasswordHash, c.CreatedAt,
	)
	return err
}
