// Package model defines the data structures used throughout the application.
package model

import "time"

// Account represents a registered account and its profile.
//
// PasswordHash is the bcrypt digest of the password chosen at registration.
// It never leaves the persistence layer in an outward-facing representation —
// handlers only ever serialize the PublicProfile projection below.
//
// AvatarURL and AvatarAssetID travel together: both empty means the account
// has no avatar, both set means the avatar lives in the asset store under
// AvatarAssetID and is served from AvatarURL. The asset ID is what we hand
// back to the store when the avatar is replaced and the old object must go.
type Account struct {
	ID            string    `json:"id"            db:"id"`
	Username      string    `json:"username"      db:"username"`
	Email         string    `json:"email"         db:"email"`
	PasswordHash  string    `json:"-"             db:"password_hash"`
	AvatarURL     string    `json:"avatarUrl"     db:"avatar_url"`
	AvatarAssetID string    `json:"-"             db:"avatar_asset_id"`
	CreatedAt     time.Time `json:"createdAt"     db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt"     db:"updated_at"`
}

// PublicProfile is the sanitized, outward-safe projection of an Account.
// It is the only account shape API responses carry: no password hash, no
// asset-store identifier.
type PublicProfile struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatarUrl"`
}

// Profile returns the sanitized projection of the account.
// AvatarURL is null in JSON when the account has no avatar.
func (a *Account) Profile() PublicProfile {
	p := PublicProfile{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
	}
	if a.AvatarURL != "" {
		url := a.AvatarURL
		p.AvatarURL = &url
	}
	return p
}
