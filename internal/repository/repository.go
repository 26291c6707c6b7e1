// Package repository defines the persistence contracts consumed by the
// service layer. Implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/account-service/internal/model"
)

// AccountRepository is the persistence contract for accounts.
//
// Uniqueness of username and email is owned by the implementation: a
// unique index is the source of truth. ExistsByIdentity is only the
// optimistic fast path — Create and Update must still translate a
// constraint violation into apperror.ErrConflict, because two writers can
// both pass the pre-check and race to the same identity.
type AccountRepository interface {
	// Create inserts a new account, assigning ID and timestamps.
	// Returns apperror.ErrConflict if username or email is taken.
	Create(ctx context.Context, account *model.Account) error

	// GetByID returns the account with the given ID, or apperror.ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Account, error)

	// GetByEmail returns the account with the given email including its
	// password hash, or apperror.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)

	// ExistsByIdentity reports whether any account other than excludeID
	// holds the given username or email. Pass excludeID "" for the
	// registration check.
	ExistsByIdentity(ctx context.Context, username, email, excludeID string) (bool, error)

	// Update persists the account's mutable fields (username, email,
	// avatar URL and asset ID) in a single update-by-id.
	// Returns apperror.ErrConflict if the new identity is taken and
	// apperror.ErrNotFound if the account no longer exists.
	Update(ctx context.Context, account *model.Account) error
}
