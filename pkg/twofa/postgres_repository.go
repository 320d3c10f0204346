package twofa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectCredential = `
SELECT secret, is_enabled, backup_codes, recovery_email, created_at, enabled_at, last_used_at
FROM two_factor_credential
WHERE user_id = $1`

const upsertCredential = `
INSERT INTO two_factor_credential
    (user_id, secret, is_enabled, backup_codes, recovery_email, created_at, enabled_at, last_used_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
    secret = EXCLUDED.secret,
    is_enabled = EXCLUDED.is_enabled,
    backup_codes = EXCLUDED.backup_codes,
    recovery_email = EXCLUDED.recovery_email,
    created_at = EXCLUDED.created_at,
    enabled_at = EXCLUDED.enabled_at,
    last_used_at = EXCLUDED.last_used_at`

const deleteCredential = `DELETE FROM two_factor_credential WHERE user_id = $1`

// lockCredential serializes transactions for a user even before a row exists.
const lockCredential = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`

// PostgresCredentialRepository implements CredentialRepository on the
// two_factor_credential table (see migrations/twofa.sql).
type PostgresCredentialRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCredentialRepository creates a new PostgreSQL-based credential repository
func NewPostgresCredentialRepository(pool *pgxpool.Pool) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{pool: pool}
}

// GetCredential retrieves the credential for a user
func (r *PostgresCredentialRepository) GetCredential(ctx context.Context, userID uuid.UUID) (TwoFactorCredential, error) {
	cred, err := scanCredential(r.pool.QueryRow(ctx, selectCredential, userID), userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return TwoFactorCredential{}, ErrCredentialNotFound
	}
	if err != nil {
		return TwoFactorCredential{}, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

// WithCredentialTx runs fn inside a database transaction holding the user's row lock.
func (r *PostgresCredentialRepository) WithCredentialTx(ctx context.Context, userID uuid.UUID, fn func(tx CredentialTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(dbTx pgx.Tx) error {
		if _, err := dbTx.Exec(ctx, lockCredential, userID.String()); err != nil {
			return fmt.Errorf("failed to lock credential: %w", err)
		}

		cred, err := scanCredential(dbTx.QueryRow(ctx, selectCredential+" FOR UPDATE", userID), userID)
		exists := true
		if errors.Is(err, pgx.ErrNoRows) {
			exists = false
		} else if err != nil {
			return fmt.Errorf("failed to get credential: %w", err)
		}

		tx := newStagedTx(cred, exists)
		if err := fn(tx); err != nil {
			return err
		}
		if !tx.dirty {
			return nil
		}

		if !tx.exists {
			if _, err := dbTx.Exec(ctx, deleteCredential, userID); err != nil {
				return fmt.Errorf("failed to delete credential: %w", err)
			}
			return nil
		}

		c := tx.current
		backupCodes := c.BackupCodes
		if backupCodes == nil {
			backupCodes = []string{}
		}
		_, err = dbTx.Exec(ctx, upsertCredential,
			userID,
			c.Secret,
			c.IsEnabled,
			backupCodes,
			pgtype.Text{String: c.RecoveryEmail, Valid: c.RecoveryEmail != ""},
			c.CreatedAt.UTC(),
			toTimestamptz(c.EnabledAt),
			toTimestamptz(c.LastUsedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save credential: %w", err)
		}
		return nil
	})
}

func scanCredential(row pgx.Row, userID uuid.UUID) (TwoFactorCredential, error) {
	var (
		cred          TwoFactorCredential
		recoveryEmail pgtype.Text
		enabledAt     pgtype.Timestamptz
		lastUsedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&cred.Secret,
		&cred.IsEnabled,
		&cred.BackupCodes,
		&recoveryEmail,
		&cred.CreatedAt,
		&enabledAt,
		&lastUsedAt,
	)
	if err != nil {
		return TwoFactorCredential{}, err
	}

	cred.UserID = userID
	cred.CreatedAt = cred.CreatedAt.UTC()
	if recoveryEmail.Valid {
		cred.RecoveryEmail = recoveryEmail.String
	}
	cred.EnabledAt = fromTimestamptz(enabledAt)
	cred.LastUsedAt = fromTimestamptz(lastUsedAt)
	return cred, nil
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time.UTC()
	return &t
}
