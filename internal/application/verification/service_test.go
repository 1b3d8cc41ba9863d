package verification

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/campus-connect/api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRecordStore struct{ mock.Mock }

func (m *mockRecordStore) Put(ctx context.Context, v *domain.EmailVerification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockRecordStore) LatestPending(ctx context.Context, userID string) (*domain.EmailVerification, error) {
	args := m.Called(ctx, userID)
	if v, _ := args.Get(0).(*domain.EmailVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecordStore) RecordAttempt(ctx context.Context, userID, verificationID string) (int, error) {
	args := m.Called(ctx, userID, verificationID)
	return args.Int(0), args.Error(1)
}
func (m *mockRecordStore) Consume(ctx context.Context, userID, verificationID string, when time.Time) error {
	return m.Called(ctx, userID, verificationID, when).Error(0)
}

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(ctx context.Context, to, subject, html string) error {
	return m.Called(ctx, to, subject, html).Error(0)
}

// --- builder ---

func newTestService(rs *mockRecordStore, sn *mockSender) Service {
	return NewService(ServiceDeps{
		Records:        rs,
		Sender:         sn,
		CodeTTL:        10 * time.Minute,
		ResendCooldown: 60 * time.Second,
		MaxAttempts:    5,
		Retention:      30 * 24 * time.Hour,
	})
}

func pendingRecord(userID, code string, createdAgo time.Duration) *domain.EmailVerification {
	now := time.Now().UTC()
	return &domain.EmailVerification{
		UserID:         userID,
		VerificationID: "01TESTULID0000000000000000",
		Email:          "a@iitb.ac.in",
		Code:           code,
		CreatedAt:      now.Add(-createdAgo),
		ExpiresAt:      now.Add(-createdAgo).Add(10 * time.Minute),
	}
}

// --- Issue ---

func TestIssue_MissingFields(t *testing.T) {
	svc := newTestService(nil, nil)

	err := svc.Issue(context.Background(), IssueRequest{UserID: "", Email: "a@iitb.ac.in"})
	assert.ErrorIs(t, err, domain.ErrMissingIssueFields)

	err = svc.Issue(context.Background(), IssueRequest{UserID: "u1", Email: ""})
	assert.ErrorIs(t, err, domain.ErrMissingIssueFields)
}

func TestIssue_NonInstitutionalEmail_NoInsertNoDispatch(t *testing.T) {
	rs := &mockRecordStore{}
	sn := &mockSender{}
	svc := newTestService(rs, sn)

	err := svc.Issue(context.Background(), IssueRequest{UserID: "u3", Email: "bad@gmail.com"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidEmailDomain)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	rs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	sn.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_HappyPath(t *testing.T) {
	rs := &mockRecordStore{}
	sn := &mockSender{}

	var stored *domain.EmailVerification
	rs.On("LatestPending", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	rs.On("Put", mock.Anything, mock.AnythingOfType("*domain.EmailVerification")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.EmailVerification) }).
		Return(nil)
	var sentHTML string
	sn.On("Send", mock.Anything, "a@iitb.ac.in", emailSubject, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sentHTML = args.String(3) }).
		Return(nil)

	svc := newTestService(rs, sn)
	err := svc.Issue(context.Background(), IssueRequest{UserID: "u1", Email: "a@iitb.ac.in"})

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "a@iitb.ac.in", stored.Email)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), stored.Code)
	assert.Nil(t, stored.VerifiedAt)
	assert.Equal(t, stored.CreatedAt.Add(10*time.Minute), stored.ExpiresAt)
	assert.NotEmpty(t, stored.VerificationID)
	assert.Contains(t, sentHTML, stored.Code)
	rs.AssertExpectations(t)
	sn.AssertExpectations(t)
}

func TestIssue_ResendCooldown(t *testing.T) {
	rs := &mockRecordStore{}
	sn := &mockSender{}
	rs.On("LatestPending", mock.Anything, "u1").Return(pendingRecord("u1", "111111", 5*time.Second), nil)

	svc := newTestService(rs, sn)
	err := svc.Issue(context.Background(), IssueRequest{UserID: "u1", Email: "a@iitb.ac.in"})

	assert.ErrorIs(t, err, domain.ErrResendCooldown)
	assert.ErrorIs(t, err, domain.ErrTooManyRequests)
	rs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	sn.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_CooldownElapsed_NewIndependentRecord(t *testing.T) {
	rs := &mockRecordStore{}
	sn := &mockSender{}
	rs.On("LatestPending", mock.Anything, "u2").Return(pendingRecord("u2", "111111", 2*time.Minute), nil)
	rs.On("Put", mock.Anything, mock.AnythingOfType("*domain.EmailVerification")).Return(nil)
	sn.On("Send", mock.Anything, "a@iitb.ac.in", emailSubject, mock.Anything).Return(nil)

	svc := newTestService(rs, sn)
	err := svc.Issue(context.Background(), IssueRequest{UserID: "u2", Email: "a@iitb.ac.in"})

	require.NoError(t, err)
	rs.AssertExpectations(t)
}

func TestIssue_StoreInsertFails(t *testing.T) {
	rs := &mockRecordStore{}
	sn := &mockSender{}
	rs.On("LatestPending", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	rs.On("Put", mock.Anything, mock.Anything).Return(errors.New("dynamo down"))

	svc := newTestService(rs, sn)
	err := svc.Issue(context.Background(), IssueRequest{UserID: "u1", Email: "a@iitb.ac.in"})

	require.Error(t, err)
	sn.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_DispatchFails_RecordAlreadyInserted(t *testing.T) {
	rs := &mockRecordStore{}
	sn := &mockSender{}
	rs.On("LatestPending", mock.Anything, "u1").Return(nil, domain.ErrNotFound)
	rs.On("Put", mock.Anything, mock.Anything).Return(nil)
	sn.On("Send", mock.Anything, "a@iitb.ac.in", emailSubject, mock.Anything).Return(errors.New("smtp timeout"))

	svc := newTestService(rs, sn)
	err := svc.Issue(context.Background(), IssueRequest{UserID: "u1", Email: "a@iitb.ac.in"})

	// Issuance fails overall; the orphaned pending row is left as-is.
	require.Error(t, err)
	rs.AssertCalled(t, "Put", mock.Anything, mock.Anything)
	rs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewCode_SixDigitsInRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := newCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.Regexp(t, regexp.MustCompile(`^[1-9]\d{5}$`), code)
	}
}

// --- Verify ---

func TestVerify_MissingFields(t *testing.T) {
	svc := newTestService(nil, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1"})
	assert.ErrorIs(t, err, domain.ErrMissingVerifyFields)
}

func TestVerify_NoPendingRecord(t *testing.T) {
	rs := &mockRecordStore{}
	rs.On("LatestPending", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	assert.ErrorIs(t, err, domain.ErrNoPendingVerification)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify_HappyPath_ConsumesRecord(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 5*time.Second)
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)
	rs.On("Consume", mock.Anything, "u1", rec.VerificationID, mock.AnythingOfType("time.Time")).Return(nil)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	require.NoError(t, err)
	rs.AssertExpectations(t)
	rs.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_SecondCallAfterConsumption_NotFound(t *testing.T) {
	rs := &mockRecordStore{}
	// The consumed row no longer matches the pending filter.
	rs.On("LatestPending", mock.Anything, "u1").Return(nil, domain.ErrNotFound)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	assert.ErrorIs(t, err, domain.ErrNoPendingVerification)
}

func TestVerify_WrongCode_DoesNotConsume(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 5*time.Second)
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)
	rs.On("RecordAttempt", mock.Anything, "u1", rec.VerificationID).Return(1, nil)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "000000"})

	assert.ErrorIs(t, err, domain.ErrCodeMismatch)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	rs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rs.AssertExpectations(t)
}

func TestVerify_WrongThenRightCode(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 5*time.Second)
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)
	rs.On("RecordAttempt", mock.Anything, "u1", rec.VerificationID).Return(1, nil)
	rs.On("Consume", mock.Anything, "u1", rec.VerificationID, mock.Anything).Return(nil)

	svc := newTestService(rs, nil)
	require.Error(t, svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "111111"}))
	require.NoError(t, svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"}))
}

func TestVerify_Expired_EvenWithCorrectCode(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 11*time.Minute) // past the 10-minute window
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	assert.ErrorIs(t, err, domain.ErrCodeExpired)
	assert.ErrorIs(t, err, domain.ErrExpired)
	rs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rs.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_OlderCodeAgainstNewerIssuance_Mismatch(t *testing.T) {
	rs := &mockRecordStore{}
	// Two issuances happened; LatestPending resolves to the newer record r2,
	// so r1's code no longer matches even though r1 has not expired.
	r2 := pendingRecord("u2", "335577", 2*time.Second)
	rs.On("LatestPending", mock.Anything, "u2").Return(r2, nil)
	rs.On("RecordAttempt", mock.Anything, "u2", r2.VerificationID).Return(1, nil)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u2", OTP: "482913"}) // r1's code

	assert.ErrorIs(t, err, domain.ErrCodeMismatch)
}

func TestVerify_AttemptCapReached(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 5*time.Second)
	rec.Attempts = 5
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)
	rs.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_ConcurrentConsume_LoserGetsNotFound(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 5*time.Second)
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)
	rs.On("Consume", mock.Anything, "u1", rec.VerificationID, mock.Anything).
		Return(fmt.Errorf("already consumed: %w", domain.ErrNotFound))

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	assert.ErrorIs(t, err, domain.ErrNoPendingVerification)
}

func TestVerify_ConsumeDependencyFailure_Propagates(t *testing.T) {
	rs := &mockRecordStore{}
	rec := pendingRecord("u1", "482913", 5*time.Second)
	rs.On("LatestPending", mock.Anything, "u1").Return(rec, nil)
	rs.On("Consume", mock.Anything, "u1", rec.VerificationID, mock.Anything).
		Return(errors.New("transaction canceled"))

	svc := newTestService(rs, nil)
	err := svc.Verify(context.Background(), VerifyRequest{UserID: "u1", OTP: "482913"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
