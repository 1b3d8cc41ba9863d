package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmailVerificationPending(t *testing.T) {
	v := EmailVerification{}
	assert.True(t, v.Pending())

	now := time.Now()
	v.VerifiedAt = &now
	assert.False(t, v.Pending())
}

func TestEmailVerificationExpired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	v := EmailVerification{CreatedAt: issued, ExpiresAt: issued.Add(10 * time.Minute)}

	assert.False(t, v.Expired(issued.Add(9*time.Minute)))
	assert.True(t, v.Expired(issued.Add(10*time.Minute+time.Second)))
}
