package domain

import "time"

// EmailVerification is one issued OTP for one user+email pair.
// PK: user_id, SK: verification_id (ULID). Each issuance inserts a fresh row;
// the verifier only ever acts on the newest pending row, so older pending rows
// are superseded without being touched. ULIDs sort by creation time with a
// monotonic tie-break, which keeps "newest" stable even for same-millisecond inserts.
//
// verified_at is absent while the code is consumable and set exactly once on
// success; a consumed row is terminal. PurgeAt is a DynamoDB TTL attribute used
// purely for storage housekeeping, set well past the code's expiry.
type EmailVerification struct {
	UserID         string     `json:"user_id" dynamodbav:"user_id"`
	VerificationID string     `json:"id" dynamodbav:"verification_id"`
	Email          string     `json:"email" dynamodbav:"email"`
	Code           string     `json:"-" dynamodbav:"otp_code"`
	Attempts       int        `json:"-" dynamodbav:"attempts"`
	CreatedAt      time.Time  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at" dynamodbav:"expires_at"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
	PurgeAt        int64      `json:"-" dynamodbav:"purge_at"` // TTL (Unix seconds)
}

// Pending reports whether the code is still consumable (not yet verified).
// Expiry is derived at read time, never stored.
func (v *EmailVerification) Pending() bool { return v.VerifiedAt == nil }

// Expired reports whether the code's validity window has elapsed at the given instant.
func (v *EmailVerification) Expired(now time.Time) bool { return now.After(v.ExpiresAt) }
