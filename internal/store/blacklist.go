package store

import (
	"context"
	"database/sql"
	"time"
)

// BlacklistRepository records revoked refresh-token IDs. Rows are only ever
// inserted; expired ones can be purged out of band.
type BlacklistRepository struct {
	db *sql.DB
}

func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Add blacklists a refresh token by its JTI. Blacklisting the same JTI twice
// is reported as ErrDuplicateToken.
func (r *BlacklistRepository) Add(ctx context.Context, jti string, userID int, expiresAt time.Time) error {
	const query = `
		INSERT INTO refresh_token_blacklist (jti, user_id, expires_at, blacklisted_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, jti, userID, expiresAt, time.Now()); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return err
	}
	return nil
}

// Contains reports whether the given JTI has been blacklisted.
func (r *BlacklistRepository) Contains(ctx context.Context, jti string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM refresh_token_blacklist WHERE jti = $1
		)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jti).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
