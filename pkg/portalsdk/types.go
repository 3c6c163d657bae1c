package portalsdk

import "time"

// ErrorResponse is the JSON error body every endpoint returns on failure.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned by a successful login.
type SessionResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"` // always "Bearer"
	ExpiresIn int64  `json:"expires_in"` // seconds until expiry
}

// ActivateRequest is the body of POST /portal/activate. The linking code
// is matched case-insensitively.
type ActivateRequest struct {
	LinkingCode string `json:"linking_code"`
	NewPassword string `json:"new_password"`
}

// ActivateResponse confirms which account the code belonged to.
type ActivateResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// GenerateCodeRequest is the body of POST /portal/admin/generate-code.
// AssignedSites is required for investigators and ignored for admins.
type GenerateCodeRequest struct {
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Role          string   `json:"role"`
	AssignedSites []string `json:"assigned_sites,omitempty"`
}

// GenerateCodeResponse carries the one-time linking code. This is the
// only place the code ever appears; it is not listed or retrievable
// afterwards.
type GenerateCodeResponse struct {
	UserID      string `json:"user_id"`
	LinkingCode string `json:"linking_code"`
}

// User is the account shape returned by admin listing endpoints. It
// never includes the password hash or the linking code.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	AssignedSites []string  `json:"assigned_sites,omitempty"`
	Active        bool      `json:"active"`
	Activated     bool      `json:"activated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UsersResponse is the body of GET /portal/users.
type UsersResponse struct {
	Users []User `json:"users"`
}

// HealthResponse is returned by GET /health and GET /readyz.
type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service,omitempty"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
}
