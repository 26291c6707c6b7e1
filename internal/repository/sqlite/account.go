package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, username, email, password_hash, avatar_url, avatar_asset_id, created_at, updated_at`

// Create inserts a new account, assigning an ID and timestamps.
// A UNIQUE violation on username or email is translated to the same
// conflict error the pre-check produces.
func (db *DB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.AvatarURL,
		account.AvatarAssetID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("username or email already taken")
		}
		return fmt.Errorf("sqlite: inserting account %q: %w", account.Username, err)
	}

	return nil
}

// GetByID retrieves an account by its internal ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getByColumn(ctx, "id", id)
}

// GetByEmail retrieves an account by email, including the password hash.
// Login uses this for credential verification.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getByColumn(ctx, "email", email)
}

func (db *DB) getByColumn(ctx context.Context, column, value string) (*model.Account, error) {
	var a model.Account

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`,
		value,
	).Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.AvatarURL,
		&a.AvatarAssetID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: getting account by %s %q: %w", column, value, err)
	}

	return &a, nil
}

// ExistsByIdentity reports whether any account other than excludeID holds
// the given username or email. Empty username/email values never match — a
// partial profile update checks only the fields actually changing.
func (db *DB) ExistsByIdentity(ctx context.Context, username, email, excludeID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts
		 WHERE ((username = ? AND ? != '') OR (email = ? AND ? != ''))
		   AND id != ?`,
		username, username, email, email, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking identity (username=%q email=%q): %w", username, email, err)
	}

	return count > 0, nil
}

// Update persists the account's mutable fields in a single update-by-id.
// The caller passes the full post-update record; all changed fields are
// applied atomically in one statement.
func (db *DB) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts
		 SET username = ?, email = ?, avatar_url = ?, avatar_asset_id = ?, updated_at = ?
		 WHERE id = ?`,
		account.Username,
		account.Email,
		account.AvatarURL,
		account.AvatarAssetID,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("username or email already taken")
		}
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for account %s: %w", account.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("account", account.ID)
	}

	return nil
}
