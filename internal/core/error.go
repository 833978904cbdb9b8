// FILE: internal/core/error.go
package core

// Error codes
const (
	ErrTournamentNotFound = "TOURNAMENT_NOT_FOUND"
	ErrInvalidTransition  = "INVALID_TRANSITION"
	ErrRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent     = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest     = "INVALID_REQUEST"
	ErrInternalError      = "INTERNAL_ERROR"
	ErrStorageDisabled    = "STORAGE_DISABLED"
	ErrUnauthorized       = "UNAUTHORIZED"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
