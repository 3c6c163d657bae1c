package portalsdk

import "fmt"

// Error codes shared by the server handlers and this client.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidLinkingCode = "invalid_linking_code"
	ErrorCodeWeakPassword       = "weak_password"
	ErrorCodeEmailTaken         = "email_taken"
	ErrorCodeUnauthenticated    = "unauthenticated"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeRateLimited        = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// APIError is a non-2xx response decoded into a typed error. Callers can
// switch on Code to distinguish, say, a spent linking code from a weak
// password.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("portalsdk: %s (http %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("portalsdk: %s: %s", e.Code, e.Description)
}
