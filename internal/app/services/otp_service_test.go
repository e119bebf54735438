package services

import (
	"context"
	"testing"
	"time"

	"github.com/paathshala/backend/internal/pkg/apperrors"
	"github.com/paathshala/backend/internal/pkg/otp"
	"github.com/paathshala/backend/internal/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOTPService() (*OTPService, *fakeOTPRepo, *fakeAuditRepo, *captureNotifier, *ratelimit.Limiter) {
	otpRepo := newFakeOTPRepo()
	auditRepo := newFakeAuditRepo()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(0), newFakeBlockStore())
	notifier := &captureNotifier{}
	svc := NewOTPService(otpRepo, auditRepo, limiter, notifier, 5*time.Minute, 3, zerolog.Nop())
	return svc, otpRepo, auditRepo, notifier, limiter
}

func TestGenerateDeliversAndVerifies(t *testing.T) {
	svc, _, auditRepo, notifier, _ := newTestOTPService()
	ctx := context.Background()

	resp, err := svc.Generate(ctx, "9876543210", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), resp.ExpiresAt, 5*time.Second)

	require.Len(t, notifier.codes, 1)
	code := notifier.codes[0]
	assert.Len(t, code, otp.CodeLength)

	require.NoError(t, svc.Verify(ctx, "9876543210", code))
	assert.Equal(t, 1, auditRepo.countAction("OTP_GENERATED"))

	// Consumed codes never verify a second time
	err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}

func TestGenerateSupersedesEarlierCode(t *testing.T) {
	svc, _, _, notifier, _ := newTestOTPService()
	ctx := context.Background()

	_, err := svc.Generate(ctx, "9876543210", "", "")
	require.NoError(t, err)
	_, err = svc.Generate(ctx, "9876543210", "", "")
	require.NoError(t, err)

	require.Len(t, notifier.codes, 2)
	first, second := notifier.codes[0], notifier.codes[1]

	if first != second {
		err = svc.Verify(ctx, "9876543210", first)
		assert.ErrorIs(t, err, apperrors.ErrInvalidOTP, "superseded code must not verify")
	}
	assert.NoError(t, svc.Verify(ctx, "9876543210", second))
}

func TestGenerateRateLimited(t *testing.T) {
	svc, _, auditRepo, notifier, limiter := newTestOTPService()
	ctx := context.Background()

	for i := 0; i < ratelimit.PolicyOTPGenerate.Limit; i++ {
		_, err := svc.Generate(ctx, "9876543210", "", "")
		require.NoError(t, err)
	}

	// Using up the whole budget is allowed and installs no block
	blocked, err := limiter.IsBlocked(ctx, "9876543210")
	require.NoError(t, err)
	assert.Nil(t, blocked, "in-budget generations must not block the identifier")

	// The request past the budget is denied, blocked and audited
	_, err = svc.Generate(ctx, "9876543210", "", "")
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Len(t, notifier.codes, ratelimit.PolicyOTPGenerate.Limit, "no code is sent for a throttled request")

	blocked, err = limiter.IsBlocked(ctx, "9876543210")
	require.NoError(t, err)
	require.NotNil(t, blocked)
	assert.Equal(t, 1, auditRepo.countAction("IDENTIFIER_BLOCKED"))

	_, err = svc.Generate(ctx, "9876543210", "", "")
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Equal(t, 1, auditRepo.countAction("IDENTIFIER_BLOCKED"), "the block is audited once")
}

func TestVerifyExpiredCode(t *testing.T) {
	svc, otpRepo, _, _, _ := newTestOTPService()
	ctx := context.Background()

	_, err := otpRepo.Create(ctx, "9876543210", otp.HashCode("123456"), time.Now().Add(-time.Minute))
	require.NoError(t, err)

	err = svc.Verify(ctx, "9876543210", "123456")
	assert.ErrorIs(t, err, apperrors.ErrOTPExpired)
}

func TestVerifyWrongCodeCountsAttempts(t *testing.T) {
	svc, otpRepo, _, _, _ := newTestOTPService()
	ctx := context.Background()

	record, err := otpRepo.Create(ctx, "9876543210", otp.HashCode("123456"), time.Now().Add(5*time.Minute))
	require.NoError(t, err)

	err = svc.Verify(ctx, "9876543210", "000000")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
	assert.Equal(t, 1, otpRepo.records[record.ID].Attempts)

	err = svc.Verify(ctx, "9876543210", "000001")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)

	// Third wrong guess exhausts the code permanently
	err = svc.Verify(ctx, "9876543210", "000002")
	assert.ErrorIs(t, err, apperrors.ErrOTPMaxAttempts)

	// Even the right code is dead now
	err = svc.Verify(ctx, "9876543210", "123456")
	assert.ErrorIs(t, err, apperrors.ErrOTPMaxAttempts)
}

func TestVerifyWithoutLiveCode(t *testing.T) {
	svc, _, _, _, _ := newTestOTPService()

	err := svc.Verify(context.Background(), "9876543210", "123456")
	assert.ErrorIs(t, err, apperrors.ErrInvalidOTP)
}
