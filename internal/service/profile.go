package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
	"github.com/sakif/account-service/internal/storage"
)

// assetCleanupTimeout bounds the background deletion of a replaced avatar.
const assetCleanupTimeout = 10 * time.Second

// ProfileService orchestrates partial profile updates, including safe
// replacement of a previously stored avatar.
type ProfileService struct {
	accounts repository.AccountRepository
	assets   storage.AssetStore
	logger   *slog.Logger
}

// NewProfileService creates a ProfileService with injected collaborators.
func NewProfileService(
	accounts repository.AccountRepository,
	assets storage.AssetStore,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{
		accounts: accounts,
		assets:   assets,
		logger:   logger,
	}
}

// UpdateProfileInput carries the optional fields of a profile update.
// Nil means "leave unchanged".
type UpdateProfileInput struct {
	Username *string
	Email    *string
	Avatar   *ImageUpload
}

func (in UpdateProfileInput) empty() bool {
	return in.Username == nil && in.Email == nil && in.Avatar == nil
}

// UpdateProfile applies the supplied fields to the acting account.
//
// The flow is ordered so the account record never references a missing
// asset: the new avatar is uploaded first, the record update commits as a
// single update-by-id, and only then is the old asset scheduled for
// deletion. That last step is fire-and-forget — its failure is logged, never
// surfaced, because the user-visible update has already succeeded. A failed
// deletion orphans the old object; that is an accepted limitation.
func (s *ProfileService) UpdateProfile(ctx context.Context, accountID string, in UpdateProfileInput) (*model.Account, error) {
	if in.empty() {
		return nil, apperror.NoFieldsToUpdate()
	}

	if err := validateProfileUpdate(in); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		return nil, fmt.Errorf("service/profile: fetching account %s: %w", accountID, err)
	}

	// Identity pre-check excludes the acting account so keeping your own
	// username is never a conflict. The unique index remains authoritative
	// under concurrent updates.
	if in.Username != nil || in.Email != nil {
		checkUsername := ""
		if in.Username != nil {
			checkUsername = *in.Username
		}
		checkEmail := ""
		if in.Email != nil {
			checkEmail = *in.Email
		}
		taken, err := s.accounts.ExistsByIdentity(ctx, checkUsername, checkEmail, accountID)
		if err != nil {
			return nil, fmt.Errorf("service/profile: checking identity: %w", err)
		}
		if taken {
			return nil, apperror.AlreadyExists("username or email already taken")
		}
	}

	// Capture the current asset ID before any write so we know what to
	// clean up after the new one is committed.
	oldAssetID := account.AvatarAssetID

	if in.Avatar != nil {
		res, err := s.assets.Upload(ctx, in.Avatar.Data, in.Avatar.ContentType)
		if err != nil {
			s.logger.Error("avatar upload failed during profile update",
				slog.String("accountID", accountID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.StorageUnavailable("avatar upload")
		}
		account.AvatarURL = res.URL
		account.AvatarAssetID = res.AssetID
	}

	if in.Username != nil {
		account.Username = *in.Username
	}
	if in.Email != nil {
		account.Email = *in.Email
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			return nil, fmt.Errorf("service/profile: updating account: %w", err)
		case errors.Is(err, apperror.ErrNotFound):
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		s.logger.Error("account update failed",
			slog.String("accountID", accountID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StorageUnavailable("account storage")
	}

	if in.Avatar != nil && oldAssetID != "" {
		s.deleteReplacedAvatar(accountID, oldAssetID)
	}

	s.logger.Info("profile updated", slog.String("accountID", accountID))

	return account, nil
}

// deleteReplacedAvatar removes the previous avatar object in the
// background. It runs detached from the request context: the update has
// already committed, so request cancellation must not abort the cleanup,
// and cleanup failure must not reach the caller.
func (s *ProfileService) deleteReplacedAvatar(accountID, assetID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), assetCleanupTimeout)
		defer cancel()

		if err := s.assets.Delete(ctx, assetID); err != nil {
			s.logger.Warn("failed to delete replaced avatar",
				slog.String("accountID", accountID),
				slog.String("assetID", assetID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func validateProfileUpdate(in UpdateProfileInput) error {
	if in.Username != nil && strings.TrimSpace(*in.Username) == "" {
		return apperror.ValidationFailed("username", "username must not be empty")
	}
	if in.Email != nil {
		if err := validateEmail(*in.Email); err != nil {
			return err
		}
	}
	return nil
}
