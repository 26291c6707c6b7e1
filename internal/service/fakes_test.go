package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/storage"
)

// fakeAccountRepo is an in-memory repository.AccountRepository. Uniqueness
// is enforced under a mutex at Create/Update — the same contract the
// sqlite unique index gives — so service tests can exercise the
// "pre-check passes, write still conflicts" race.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	nextID   int

	// error injection
	createErr error
	getErr    error
	updateErr error

	// skipPrecheck makes ExistsByIdentity always report "free", forcing
	// conflicts onto the write path.
	skipPrecheck bool

	updateCalls int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func (f *fakeAccountRepo) identityTaken(username, email, excludeID string) bool {
	for _, a := range f.accounts {
		if a.ID == excludeID {
			continue
		}
		if (username != "" && a.Username == username) || (email != "" && a.Email == email) {
			return true
		}
	}
	return false
}

func (f *fakeAccountRepo) Create(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if f.identityTaken(account.Username, account.Email, "") {
		return apperror.AlreadyExists("username or email already taken")
	}

	f.nextID++
	account.ID = fmt.Sprintf("acct-%d", f.nextID)
	stored := *account
	f.accounts[account.ID] = &stored
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, a := range f.accounts {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (f *fakeAccountRepo) ExistsByIdentity(_ context.Context, username, email, excludeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.skipPrecheck {
		return false, nil
	}
	return f.identityTaken(username, email, excludeID), nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.accounts[account.ID]; !ok {
		return apperror.NotFound("account", account.ID)
	}
	if f.identityTaken(account.Username, account.Email, account.ID) {
		return apperror.AlreadyExists("username or email already taken")
	}
	stored := *account
	f.accounts[account.ID] = &stored
	return nil
}

// fakeAssetStore is an in-memory storage.AssetStore. Deletes are recorded
// and signalled on a channel so tests can wait for the fire-and-forget
// cleanup goroutine.
type fakeAssetStore struct {
	mu      sync.Mutex
	nextID  int
	deleted []string

	uploadErr error
	deleteErr error

	deletedCh chan string
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{deletedCh: make(chan string, 8)}
}

func (f *fakeAssetStore) Upload(_ context.Context, data []byte, contentType string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.nextID++
	assetID := fmt.Sprintf("user-profiles/asset-%d", f.nextID)
	return &storage.UploadResult{
		URL:     "https://cdn.test/" + assetID,
		AssetID: assetID,
	}, nil
}

func (f *fakeAssetStore) Delete(_ context.Context, assetID string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, assetID)
	err := f.deleteErr
	f.mu.Unlock()

	// Signal even when the delete "fails" so tests can observe the attempt.
	select {
	case f.deletedCh <- assetID:
	default:
	}
	return err
}

func (f *fakeAssetStore) deletedAssets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuthService wires an AuthService with fakes. The token service
// uses a fixed secret and the password service runs at bcrypt minimum cost.
func newTestAuthService(t *testing.T, repo *fakeAccountRepo, assets *fakeAssetStore) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", false)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	ps := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	return NewAuthService(repo, assets, ts, ps, testLogger())
}

func newTestProfileService(repo *fakeAccountRepo, assets *fakeAssetStore) *ProfileService {
	return NewProfileService(repo, assets, testLogger())
}
