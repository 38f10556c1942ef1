// Package retry implements the outer retry/backoff control loop the
// object-store adapter (C5) wraps around every call to the underlying
// client, classifying errors into a closed retry-kind taxonomy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gregakespret/sfagent/internal/constants"
	"github.com/gregakespret/sfagent/internal/model"
)

// Kind is one of the five error classes §7 names. Transient and
// generic service errors share a class; Permanent is only produced by
// the caller once the retry budget is spent, not by ClassifyError.
type Kind int

const (
	KindTransient Kind = iota
	KindExpiredCredential
	KindInterrupted
	KindInvalidKey
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindExpiredCredential:
		return "expired-credential"
	case KindInterrupted:
		return "interrupted"
	case KindInvalidKey:
		return "invalid-key"
	default:
		return "fatal"
	}
}

// ClassifyError sorts an error from the object-store client into one
// of the five retry kinds below, string-sniffing provider error
// messages the same way the AWS SDK's own retryable-error detection
// does, narrowed to the kinds a transfer agent actually distinguishes.
func ClassifyError(err error) Kind {
	if err == nil {
		return KindFatal
	}

	var invalidKey *model.InvalidKeyError
	if errors.As(err, &invalidKey) {
		return KindInvalidKey
	}

	if errors.Is(err, context.Canceled) {
		return KindInterrupted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindInterrupted
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindInterrupted
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "expiredtoken") || strings.Contains(errStr, "expired token") {
		return KindExpiredCredential
	}

	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "socket timeout") {
		return KindInterrupted
	}

	if strings.Contains(errStr, "requesttimeout") ||
		strings.Contains(errStr, "internalerror") ||
		strings.Contains(errStr, "serviceunavailable") ||
		strings.Contains(errStr, "slowdown") ||
		strings.Contains(errStr, "throttl") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return KindTransient
	}

	return KindFatal
}

// CalculateBackoff computes sleep = 1000ms *
// 2^min(attempt-1, 4), capped at 16s (constants.BackoffBase,
// constants.BackoffExponentCap, constants.BackoffCap).
func CalculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	exp := attempt - 1
	if exp > constants.BackoffExponentCap {
		exp = constants.BackoffExponentCap
	}
	delay := constants.BackoffBase * time.Duration(1<<uint(exp))
	if delay > constants.BackoffCap {
		delay = constants.BackoffCap
	}
	return delay
}

// Config parameterizes Execute.
type Config struct {
	// MaxRetries is the outer, client-side retry budget
	// (CLIENT_SIDE_MAX_RETRIES = 25).
	MaxRetries int
	// RenewCredentials rebuilds the underlying client on an expired
	// credential and returns control to the loop without consuming a
	// retry attempt.
	RenewCredentials func(context.Context) error
	// OnRetry is invoked before each sleep/renewal, for logging.
	OnRetry func(attempt int, err error, kind Kind)
}

// Execute runs operation, retrying transient/interrupted failures with
// backoff and renewing credentials on expiry, up to config.MaxRetries
// counted retries after the first call. Credential renewals do not count
// against the budget. InvalidKey and other fatal classifications fail
// immediately.
func Execute(ctx context.Context, cfg Config, operation func() error) error {
	var lastErr error
	attempt := 0

	for attempt <= cfg.MaxRetries {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		kind := ClassifyError(err)
		switch kind {
		case KindInvalidKey:
			return err

		case KindExpiredCredential:
			if cfg.RenewCredentials == nil {
				return err
			}
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, err, kind)
			}
			if renewErr := cfg.RenewCredentials(ctx); renewErr != nil {
				return fmt.Errorf("credential renewal failed: %w", renewErr)
			}
			// Renewal does not consume a retry attempt.
			continue

		case KindTransient, KindInterrupted:
			attempt++
			if attempt > cfg.MaxRetries {
				return fmt.Errorf("operation failed after %d attempts: %w", attempt, lastErr)
			}
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, err, kind)
			}
			select {
			case <-time.After(CalculateBackoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue

		default: // KindFatal
			return err
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempt, lastErr)
}
