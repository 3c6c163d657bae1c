package domain

// SessionToken is what the login endpoint returns: a signed, fixed-duration
// credential. There is no refresh token; sessions require re-login after
// expiry.
type SessionToken struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn int64  `json:"expires_in"`           // seconds until expiry
}
