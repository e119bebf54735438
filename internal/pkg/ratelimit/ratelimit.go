// Package ratelimit tracks per-identifier attempt counts, failure backoff and
// durable blocks for the authentication flow.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Rate limit errors
var (
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

// Policy is a named attempt-counting preset.
type Policy struct {
	Name     string
	Limit    int           // Attempts allowed inside one window
	Window   time.Duration // Counting window
	BlockFor time.Duration // Block duration once the limit is exceeded
	Backoff  bool          // Apply exponential backoff between failures
}

// Named presets. Counts and durations follow the abuse policies enforced
// at login and OTP generation.
var (
	PolicyOTPGenerate = Policy{Name: "otp_generate", Limit: 3, Window: 5 * time.Minute, BlockFor: 15 * time.Minute}
	PolicyLogin       = Policy{Name: "login", Limit: 5, Window: 15 * time.Minute, BlockFor: 30 * time.Minute, Backoff: true}
	PolicySuspicious  = Policy{Name: "suspicious", Limit: 20, Window: time.Hour, BlockFor: 24 * time.Hour}
)

// Backoff parameters for Policy.Backoff: delay = base * 2^(attempts-1), capped.
const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// BackoffFor returns the backoff delay after the given failure count.
func BackoffFor(attempts int) time.Duration {
	if attempts < 1 {
		return 0
	}
	shift := attempts - 1
	if shift > 30 {
		return backoffCap
	}
	d := backoffBase << uint(shift)
	if d > backoffCap {
		return backoffCap
	}
	return d
}

// Result reports the outcome of an admission attempt. Blocked is set on the
// one attempt that crossed the limit and installed the durable block; the
// caller pairs it with an audit log entry.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Blocked    bool
}

// BlockInfo describes a durable block on an identifier.
type BlockInfo struct {
	Identifier string
	Reason     string
	Attempts   int
	ExpiresAt  time.Time
	IsActive   bool
}

// Store is the counter backend. Implementations must make Increment atomic
// so two concurrent requests cannot both observe "under limit" and pass.
type Store interface {
	// Increment adds one to the key, creating it with the given TTL,
	// and returns the new count.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Get returns the current count, zero when the key is absent or expired.
	Get(ctx context.Context, key string) (int64, error)
	// TTL returns the remaining lifetime of the key, zero when absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Touch sets the key to one with the given TTL, overwriting any state.
	Touch(ctx context.Context, key string, ttl time.Duration) error
	// Evict removes the key.
	Evict(ctx context.Context, key string) error
}

// BlockStore persists durable blocks. The relational repository implements it
// so blocks survive restarts and are shared across instances.
type BlockStore interface {
	// Upsert creates a block or, when one is still active, extends its
	// expiry and increments its attempt counter.
	Upsert(ctx context.Context, identifier, reason string, expiresAt time.Time) (*BlockInfo, error)
	// Get returns the most recent block for the identifier, nil when none exists.
	Get(ctx context.Context, identifier string) (*BlockInfo, error)
	// Delete removes any block for the identifier, reporting whether one was removed.
	Delete(ctx context.Context, identifier string) (bool, error)
}

// Limiter composes attempt counting with durable blocking.
type Limiter struct {
	store  Store
	blocks BlockStore
	now    func() time.Time
}

// NewLimiter creates a Limiter over the given stores.
func NewLimiter(store Store, blocks BlockStore) *Limiter {
	return &Limiter{
		store:  store,
		blocks: blocks,
		now:    time.Now,
	}
}

func countKey(identifier string, p Policy) string {
	return fmt.Sprintf("rl:%s:%s", p.Name, identifier)
}

func backoffKey(identifier string, p Policy) string {
	return fmt.Sprintf("rl:%s:%s:backoff", p.Name, identifier)
}

// Admit counts one attempt and reports whether it may proceed. The count and
// the gate are a single atomic Increment, so two concurrent requests at the
// threshold can never both pass. Attempts within the limit are admitted and
// install nothing; the attempt that crosses the limit installs the policy's
// durable block and reports it via Result.Blocked. A backoff window rejects
// the attempt before it consumes any budget.
func (l *Limiter) Admit(ctx context.Context, identifier string, p Policy) (Result, error) {
	if p.Backoff {
		ttl, err := l.store.TTL(ctx, backoffKey(identifier, p))
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if ttl > 0 {
			return Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
		}
	}

	n, err := l.store.Increment(ctx, countKey(identifier, p), p.Window)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if n > int64(p.Limit) {
		result := Result{Allowed: false, Remaining: 0, RetryAfter: p.BlockFor}
		if n == int64(p.Limit)+1 {
			reason := fmt.Sprintf("%s attempt limit exceeded", p.Name)
			if _, err := l.Block(ctx, identifier, reason, p.BlockFor); err != nil {
				return result, err
			}
			result.Blocked = true
		}
		return result, nil
	}

	return Result{Allowed: true, Remaining: p.Limit - int(n)}, nil
}

// RecordFailure arms the exponential backoff after a failed attempt. The
// attempt itself was already counted by Admit, so policies without backoff
// need no bookkeeping here.
func (l *Limiter) RecordFailure(ctx context.Context, identifier string, p Policy) error {
	if !p.Backoff {
		return nil
	}

	n, err := l.store.Get(ctx, countKey(identifier, p))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := l.store.Touch(ctx, backoffKey(identifier, p), BackoffFor(int(n))); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return nil
}

// Reset clears the identifier's counters for one policy. Called after a
// successful attempt so earlier failures stop counting toward a block.
func (l *Limiter) Reset(ctx context.Context, identifier string, p Policy) error {
	if err := l.store.Evict(ctx, countKey(identifier, p)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if p.Backoff {
		if err := l.store.Evict(ctx, backoffKey(identifier, p)); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Block installs or extends a durable block on the identifier.
// The caller pairs every block with an audit log entry.
func (l *Limiter) Block(ctx context.Context, identifier, reason string, duration time.Duration) (*BlockInfo, error) {
	return l.blocks.Upsert(ctx, identifier, reason, l.now().Add(duration))
}

// IsBlocked returns the active block for the identifier, nil when none is in force.
func (l *Limiter) IsBlocked(ctx context.Context, identifier string) (*BlockInfo, error) {
	info, err := l.blocks.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if info == nil || !info.IsActive {
		return nil, nil
	}
	return info, nil
}

// Unblock removes a durable block and clears the identifier's counters.
// The caller pairs every unblock with an audit log entry.
func (l *Limiter) Unblock(ctx context.Context, identifier string) (bool, error) {
	removed, err := l.blocks.Delete(ctx, identifier)
	if err != nil {
		return false, err
	}

	for _, p := range []Policy{PolicyOTPGenerate, PolicyLogin, PolicySuspicious} {
		if err := l.store.Evict(ctx, countKey(identifier, p)); err != nil {
			return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if p.Backoff {
			if err := l.store.Evict(ctx, backoffKey(identifier, p)); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
	}

	return removed, nil
}
