// Package service holds the business logic layer. It sits between the HTTP
// handlers and the collaborators:
//
//	handler (HTTP) → service (business rules) → repository (DB)
//	                                          ↘ storage (asset store)
//	                                          ↘ auth (tokens, hashing)
//
// Services never touch HTTP types; handlers never touch the repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
	"github.com/sakif/account-service/internal/storage"
)

// ImageUpload is an in-memory image received from a multipart request.
type ImageUpload struct {
	Data        []byte
	ContentType string
}

// AuthService orchestrates registration, login, and session checks.
type AuthService struct {
	accounts  repository.AccountRepository
	assets    storage.AssetStore
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all dependencies injected.
func NewAuthService(
	accounts repository.AccountRepository,
	assets storage.AssetStore,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		assets:    assets,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the account and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// RegisterInput carries the registration form fields and the optional
// avatar image.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Avatar   *ImageUpload
}

// Register creates a new account and issues a session token.
//
// Ordering protects the no-dangling-reference invariant: the avatar is
// uploaded before the insert, so a failed upload means no account, and a
// failed insert never leaves an account pointing at a missing asset. If the
// insert itself fails after a successful upload, the fresh asset is deleted
// best-effort.
//
// The existence pre-check is a fast path only — a concurrent registration
// with the same identity can slip past it, and then the repository's unique
// constraint reports the same conflict error.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	taken, err := s.accounts.ExistsByIdentity(ctx, in.Username, in.Email, "")
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking identity: %w", err)
	}
	if taken {
		return nil, apperror.AlreadyExists("username or email already taken")
	}

	var avatarURL, avatarAssetID string
	if in.Avatar != nil {
		res, err := s.assets.Upload(ctx, in.Avatar.Data, in.Avatar.ContentType)
		if err != nil {
			s.logger.Error("avatar upload failed during registration",
				slog.String("username", in.Username),
				slog.String("error", err.Error()),
			)
			return nil, apperror.StorageUnavailable("avatar upload")
		}
		avatarURL = res.URL
		avatarAssetID = res.AssetID
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	account := &model.Account{
		Username:      in.Username,
		Email:         in.Email,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		AvatarAssetID: avatarAssetID,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if avatarAssetID != "" {
			s.discardAsset(avatarAssetID)
		}
		if errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: registering account: %w", err)
		}
		s.logger.Error("account insert failed",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.StorageUnavailable("account storage")
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for account %s: %w", account.ID, err)
	}

	s.logger.Info("account registered",
		slog.String("accountID", account.ID),
		slog.String("username", account.Username),
	)

	return &AuthResult{Account: account, Token: token}, nil
}

// Login verifies credentials and issues a new session token.
//
// Unknown email and wrong password return the identical error; the lookup
// result is never echoed back. Tokens are not tracked server-side, so a new
// login does not invalidate tokens issued earlier.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up account by email: %w", err)
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for account %s: %w", account.ID, err)
	}

	s.logger.Info("account logged in", slog.String("accountID", account.ID))

	return &AuthResult{Account: account, Token: token}, nil
}

// CheckAuth re-fetches the acting account so edits made elsewhere since the
// token was issued are reflected. Fails with Unauthenticated if the account
// no longer exists.
func (s *AuthService) CheckAuth(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("account no longer exists")
		}
		return nil, fmt.Errorf("service/auth: fetching account %s: %w", accountID, err)
	}
	return account, nil
}

// discardAsset removes an asset that was uploaded for a write that never
// committed. Failure only costs an orphaned object, so it is logged and
// swallowed.
func (s *AuthService) discardAsset(assetID string) {
	ctx, cancel := context.WithTimeout(context.Background(), assetCleanupTimeout)
	defer cancel()
	if err := s.assets.Delete(ctx, assetID); err != nil {
		s.logger.Warn("failed to discard uploaded avatar",
			slog.String("assetID", assetID),
			slog.String("error", err.Error()),
		)
	}
}

func validateRegistration(in RegisterInput) error {
	if strings.TrimSpace(in.Username) == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if in.Password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(in.Password) < 8 {
		return apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}
	return nil
}
