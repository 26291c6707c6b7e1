package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie the session token travels in.
const SessionCookieName = "jwt"

// sessionTTL is the fixed lifetime of a session token. There is no refresh
// or rotation: after 24 hours the client must log in again.
const sessionTTL = 24 * time.Hour

// TokenService issues and verifies session tokens.
//
// Tokens are HS256-signed JWTs carrying the account ID in the Subject claim.
// They are stateless — no server-side session table exists, so a token
// remains valid until its expiry even after logout. Logout only clears the
// client-held cookie.
type TokenService struct {
	secret []byte
	secure bool // set Secure on cookies (false only in development)
}

// NewTokenService creates a TokenService with the given signing secret.
// secure controls the cookie Secure flag; pass false only for local
// development over plain HTTP.
func NewTokenService(secret string, secure bool) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), secure: secure}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a new session token for the given account ID.
func (s *TokenService) Issue(accountID string) (string, error) {
	return s.IssueWithTTL(accountID, sessionTTL)
}

// IssueWithTTL creates a token with a custom lifetime. Used by tests to
// mint already-expired and long-lived tokens.
func (s *TokenService) IssueWithTTL(accountID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "account-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a session token string.
// Returns the account ID from the Subject claim if the signature is valid,
// the token is not expired, and the issuer matches. Restricting the
// accepted algorithms to HS256 blocks algorithm-confusion tokens.
func (s *TokenService) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer("account-service"),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	accountID := c.Subject
	if accountID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return accountID, nil
}

// AttachCookie sets the session cookie carrying the token.
//
// HttpOnly keeps the token away from page scripts, SameSite=Strict keeps it
// off cross-site requests, and Secure (outside development) keeps it off
// plain HTTP. MaxAge matches the token lifetime so the browser drops the
// cookie when the token would stop verifying anyway.
func (s *TokenService) AttachCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.secure,
	})
}

// ClearCookie tells the browser to delete the session cookie.
// The token value itself stays cryptographically valid until expiry — this
// is the documented limitation of stateless sessions, not an oversight.
func (s *TokenService) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.secure,
	})
}
