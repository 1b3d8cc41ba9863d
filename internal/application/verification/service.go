package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/campus-connect/api/internal/domain"
	"github.com/campus-connect/api/internal/infrastructure/email"
	"github.com/campus-connect/api/internal/pkg/id"
	"github.com/campus-connect/api/internal/pkg/validate"
)

const emailSubject = "Your Campus Connect Verification Code"

type IssueRequest struct {
	UserID string `json:"userId" validate:"required"`
	Email  string `json:"email" validate:"required,iit_email"`
}

type VerifyRequest struct {
	UserID string `json:"userId" validate:"required"`
	OTP    string `json:"otp" validate:"required"`
}

// RecordStore is the verification-row store. LatestPending must return rows
// in reverse insertion order, and Consume must let exactly one concurrent
// caller win (reporting domain.ErrNotFound to the rest).
type RecordStore interface {
	Put(ctx context.Context, v *domain.EmailVerification) error
	LatestPending(ctx context.Context, userID string) (*domain.EmailVerification, error)
	RecordAttempt(ctx context.Context, userID, verificationID string) (int, error)
	Consume(ctx context.Context, userID, verificationID string, when time.Time) error
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) error
	Verify(ctx context.Context, req VerifyRequest) error
}

type service struct {
	records        RecordStore
	sender         email.Sender
	codeTTL        time.Duration
	resendCooldown time.Duration
	maxAttempts    int
	retention      time.Duration
}

type ServiceDeps struct {
	Records        RecordStore
	Sender         email.Sender
	CodeTTL        time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	Retention      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		records:        deps.Records,
		sender:         deps.Sender,
		codeTTL:        deps.CodeTTL,
		resendCooldown: deps.ResendCooldown,
		maxAttempts:    deps.MaxAttempts,
		retention:      deps.Retention,
	}
}

// Issue generates a fresh 6-digit code for the user, stores it and emails it.
// Every call inserts a new row; older pending codes for the same user are
// superseded by recency, never deleted. If the email dispatch fails the call
// fails, and the freshly inserted row is left behind as a harmless orphan —
// it can never be matched without the code reaching the inbox.
func (s *service) Issue(ctx context.Context, req IssueRequest) error {
	if err := validate.Struct(req); err != nil {
		if req.UserID == "" || req.Email == "" {
			return domain.ErrMissingIssueFields
		}
		return domain.ErrInvalidEmailDomain
	}

	latest, err := s.records.LatestPending(ctx, req.UserID)
	switch {
	case err == nil:
		if time.Since(latest.CreatedAt) < s.resendCooldown {
			return domain.ErrResendCooldown
		}
	case errors.Is(err, domain.ErrNotFound):
		// first issuance for this user
	default:
		return fmt.Errorf("check resend cooldown: %w", err)
	}

	code, err := newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	now := time.Now().UTC()
	v := &domain.EmailVerification{
		UserID:         req.UserID,
		VerificationID: id.New(),
		Email:          req.Email,
		Code:           code,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.codeTTL),
		PurgeAt:        now.Add(s.retention).Unix(),
	}
	if err := s.records.Put(ctx, v); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if err := s.sender.Send(ctx, req.Email, emailSubject, codeEmailHTML(code)); err != nil {
		slog.Error("failed to send verification email", "user_id", req.UserID, "err", err)
		return fmt.Errorf("send verification email: %w", err)
	}

	slog.Info("verification code issued", "user_id", req.UserID, "verification_id", v.VerificationID)
	return nil
}

// Verify checks the submitted code against the user's newest pending
// verification row. Expiry and the attempt cap are checked before the code
// itself; a mismatch bumps the attempt counter without consuming the row.
// On a match the row is consumed and the profile flag flipped atomically.
func (s *service) Verify(ctx context.Context, req VerifyRequest) error {
	if err := validate.Struct(req); err != nil {
		return domain.ErrMissingVerifyFields
	}

	v, err := s.records.LatestPending(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoPendingVerification
		}
		return fmt.Errorf("look up verification: %w", err)
	}

	if v.Expired(time.Now()) {
		return domain.ErrCodeExpired
	}
	if v.Attempts >= s.maxAttempts {
		return domain.ErrTooManyAttempts
	}
	if req.OTP != v.Code {
		if _, err := s.records.RecordAttempt(ctx, v.UserID, v.VerificationID); err != nil {
			slog.Warn("failed to record verification attempt", "user_id", v.UserID, "err", err)
		}
		return domain.ErrCodeMismatch
	}

	if err := s.records.Consume(ctx, v.UserID, v.VerificationID, time.Now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A concurrent verify call won the race for this row.
			return domain.ErrNoPendingVerification
		}
		return fmt.Errorf("mark email verified: %w", err)
	}

	slog.Info("email verified", "user_id", v.UserID, "verification_id", v.VerificationID)
	return nil
}

// newCode draws a uniform 6-digit code from crypto/rand.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func codeEmailHTML(code string) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #1a365d; text-align: center;">Campus Connect</h1>
			<div style="background: #f7fafc; border-radius: 8px; padding: 30px; text-align: center;">
				<h2 style="color: #2d3748;">Verify Your Email</h2>
				<p style="color: #4a5568;">Enter this code to verify your IIT email address:</p>
				<div style="background: #1a365d; color: white; font-size: 32px; letter-spacing: 8px; padding: 20px; border-radius: 8px; font-weight: bold;">%s</div>
				<p style="color: #718096; margin-top: 20px; font-size: 14px;">This code expires in 10 minutes.</p>
			</div>
			<p style="color: #a0aec0; text-align: center; margin-top: 20px; font-size: 12px;">
				If you didn't request this code, please ignore this email.
			</p>
		</div>`, code)
}
