package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/account-service/internal/apperror"
	"github.com/sakif/account-service/internal/auth"
	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/service"
	"github.com/sakif/account-service/internal/storage"
)

// fakeAccountRepo is an in-memory repository with mutex-enforced
// uniqueness, mirroring the sqlite unique index.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	nextID   int
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
	if a, ok := f.accounts[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperror.NotFound("account", id)
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	return f.identityTaken(username, email, excludeID), nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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

// fakeAssetStore returns deterministic URLs and never fails.
type fakeAssetStore struct {
	mu     sync.Mutex
	nextID int
}

func (f *fakeAssetStore) Upload(_ context.Context, _ []byte, _ string) (*storage.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	assetID := fmt.Sprintf("user-profiles/asset-%d", f.nextID)
	return &storage.UploadResult{URL: "https://cdn.test/" + assetID, AssetID: assetID}, nil
}

func (f *fakeAssetStore) Delete(_ context.Context, _ string) error { return nil }

// newTestRouter builds the auth route tree over fakes, mirroring the
// server's wiring.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := newFakeAccountRepo()
	assets := &fakeAssetStore{}

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", false)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	authHandler := NewAuthHandler(service.NewAuthService(repo, assets, tokens, passwords, logger), tokens, logger)
	profileHandler := NewProfileHandler(service.NewProfileService(repo, assets, logger), logger)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, repo))
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/check", authHandler.HandleCheck)
			r.Put("/profile", profileHandler.HandleUpdate)
		})
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAlice(t *testing.T, router http.Handler) *http.Cookie {
	t.Helper()
	rec := postJSON(t, router, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "register body: %s", rec.Body.String())
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestHandleRegister_Success(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "pw123456",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	var body struct {
		Message string              `json:"message"`
		User    model.PublicProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User.Username)
	assert.Nil(t, body.User.AvatarURL)

	// The raw body must not leak credential material.
	raw := rec.Body.String()
	assert.NotContains(t, raw, "passwordHash")
	assert.NotContains(t, raw, "pw123456")
	assert.NotContains(t, raw, "$2a$")
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	router := newTestRouter(t)
	registerAlice(t, router)

	rec := postJSON(t, router, "/api/auth/register", map[string]string{
		"username": "bob",
		"email":    "alice@x.com",
		"password": "pw123456",
	})

	require.Equal(t, http.StatusConflict, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "conflict", body.Error)

	// No session may be issued on a failed registration.
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandleRegister_ValidationFailure(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "short",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHandleRegister_MultipartWithAvatar(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("username", "alice"))
	require.NoError(t, w.WriteField("email", "alice@x.com"))
	require.NoError(t, w.WriteField("password", "pw123456"))
	part, err := w.CreateFormFile("profilePic", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var body struct {
		User model.PublicProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.User.AvatarURL)
	assert.True(t, strings.HasPrefix(*body.User.AvatarURL, "https://cdn.test/"))
}

func TestHandleRegister_RejectsNonImageFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("username", "alice"))
	require.NoError(t, w.WriteField("email", "alice@x.com"))
	require.NoError(t, w.WriteField("password", "pw123456"))
	part, err := w.CreateFormFile("profilePic", "evil.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error)
}

func TestHandleLogin_Success(t *testing.T) {
	router := newTestRouter(t)
	registerAlice(t, router)

	rec := postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "alice@x.com",
		"password": "pw123456",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
}

func TestHandleLogin_BadCredentials_IdenticalResponses(t *testing.T) {
	router := newTestRouter(t)
	registerAlice(t, router)

	wrongPass := postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "alice@x.com",
		"password": "wrong-password",
	})
	unknownEmail := postJSON(t, router, "/api/auth/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "pw123456",
	})

	require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPass.Body.String(), unknownEmail.Body.String(),
		"bad password and unknown email must be indistinguishable")
}

func TestHandleCheck_RequiresSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCheck_WithSession(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerAlice(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User model.PublicProfile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.User.Username)
	assert.Equal(t, "alice@x.com", body.User.Email)
}

func TestHandleLogout_ClearsCookie(t *testing.T) {
	router := newTestRouter(t)
	cookie := registerAlice(t, router)

	rec := postJSON(t, router, "/api/auth/logout", nil, cookie)

	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}
