package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrExpired         = errors.New("expired")
	ErrTooManyRequests = errors.New("too many requests")
)

// apiError pairs a stable user-facing message with one of the sentinel kinds.
// The message is returned verbatim to clients; the kind drives the status mapping.
type apiError struct {
	kind error
	msg  string
}

func (e *apiError) Error() string { return e.msg }
func (e *apiError) Unwrap() error { return e.kind }

func newAPIError(kind error, msg string) error {
	return &apiError{kind: kind, msg: msg}
}

// Email verification failures. The message strings are part of the API contract:
// the web client switches its "resend" vs "re-enter code" prompt on them.
var (
	ErrMissingIssueFields    = newAPIError(ErrBadRequest, "Missing userId or email")
	ErrMissingVerifyFields   = newAPIError(ErrBadRequest, "Missing userId or otp")
	ErrInvalidEmailDomain    = newAPIError(ErrBadRequest, "Invalid email domain. Please use your IIT institutional email (@iit*.ac.in)")
	ErrNoPendingVerification = newAPIError(ErrNotFound, "No pending verification found")
	ErrCodeExpired           = newAPIError(ErrExpired, "Verification code has expired. Please request a new one.")
	ErrCodeMismatch          = newAPIError(ErrUnauthorized, "Invalid verification code")
	ErrResendCooldown        = newAPIError(ErrTooManyRequests, "Please wait before requesting a new code")
	ErrTooManyAttempts       = newAPIError(ErrTooManyRequests, "Too many failed attempts. Please request a new code.")
)
