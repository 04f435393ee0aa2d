package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

type RecoveryAccount struct {
	AccountID string
	Contact   string
}

type CodeIssue struct {
	AccountID string
	CodeHash  [32]byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type RequestMetrics struct {
	RequestIssued    int
	RequestAnonymous int
}

type RequestEvents struct {
	RecoveryRequest string
}

type RequestErrors struct {
	EngineNotReady error
	Unavailable    error
}

type RequestDeps struct {
	CodeDigits int
	CodeTTL    time.Duration
	Now        func() time.Time

	GetAccountByIdentifier func(string) (RecoveryAccount, error)
	GenerateCode           func(int) (string, error)
	HashCode               func(string) [32]byte
	SaveCode               func(context.Context, CodeIssue) error
	EnqueueNotification    func(account RecoveryAccount, code string, expiresAt time.Time)
	SleepEnumerationDelay  func(context.Context) error
	MapStoreError          func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics RequestMetrics
	Events  RequestEvents
	Errors  RequestErrors
}

// RunRequestReset issues a one-time code for the identifier's account and
// hands it to the notification path. For unknown identifiers it reports the
// same generic success after a randomized delay; only infrastructure failures
// while persisting the code surface as errors.
func RunRequestReset(ctx context.Context, identifier string, deps RequestDeps) error {
	normalizeRequestDeps(&deps)

	if deps.GetAccountByIdentifier == nil ||
		deps.GenerateCode == nil ||
		deps.HashCode == nil ||
		deps.SaveCode == nil {
		return deps.Errors.EngineNotReady
	}

	identifier = NormalizeIdentifier(identifier)
	if identifier == "" {
		return anonymousRequestSuccess(ctx, identifier, deps)
	}

	account, err := deps.GetAccountByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return anonymousRequestSuccess(ctx, identifier, deps)
	}

	code, err := deps.GenerateCode(deps.CodeDigits)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, account.AccountID, deps.Errors.Unavailable, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "code_generation_failed",
			}
		})
		return deps.Errors.Unavailable
	}

	now := deps.Now()
	issue := CodeIssue{
		AccountID: account.AccountID,
		CodeHash:  deps.HashCode(code),
		IssuedAt:  now,
		ExpiresAt: now.Add(deps.CodeTTL),
	}

	if err := deps.SaveCode(ctx, issue); err != nil {
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, account.AccountID, mapped, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		return mapped
	}

	deps.EnqueueNotification(account, code, issue.ExpiresAt)

	deps.MetricInc(deps.Metrics.RequestIssued)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, true, account.AccountID, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})
	return nil
}

// anonymousRequestSuccess is the unknown-identifier branch: same result, same
// audit event type, and a randomized delay so timing does not reveal account
// existence.
func anonymousRequestSuccess(ctx context.Context, identifier string, deps RequestDeps) error {
	if err := deps.SleepEnumerationDelay(ctx); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.RequestAnonymous)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, true, "", nil, func() map[string]string {
		return map[string]string{
			"identifier":       identifier,
			"enumeration_safe": "true",
		}
	})
	return nil
}

// NormalizeIdentifier canonicalizes a caller-supplied identifier before
// account lookup.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func normalizeRequestDeps(deps *RequestDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SleepEnumerationDelay == nil {
		deps.SleepEnumerationDelay = func(context.Context) error { return nil }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.Unavailable }
	}
	if deps.EnqueueNotification == nil {
		deps.EnqueueNotification = func(RecoveryAccount, string, time.Time) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
