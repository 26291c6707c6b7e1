package auth

import (
	"context"
	"net/http"

	"github.com/sakif/account-service/internal/model"
	"github.com/sakif/account-service/internal/repository"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the values we store.
type contextKey string

const accountKey contextKey = "account"

// RequireAuth is the session guard for protected routes.
//
// The transition from unauthenticated to authenticated requires all three
// steps to pass: the session cookie is present, the token's signature and
// expiry verify, and the referenced account still exists. Any failure
// short-circuits to the same 401 response — the caller is never told which
// step failed.
//
// On success the current account record is attached to the request context,
// so handlers see the account as it is now, not as it was when the token
// was issued.
func RequireAuth(tokens *TokenService, accounts repository.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			accountID, err := tokens.Verify(cookie.Value)
			if err != nil {
				unauthorized(w)
				return
			}

			account, err := accounts.GetByID(r.Context(), accountID)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountFromContext retrieves the authenticated account from the request
// context. Returns (nil, false) outside a RequireAuth-protected route.
func AccountFromContext(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(accountKey).(*model.Account)
	return account, ok && account != nil
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
}
