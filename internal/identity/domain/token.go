package domain

import "time"

// TokenPair is what a successful authentication returns: a short-lived
// signed access token and a long-lived opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // access token lifetime
}
