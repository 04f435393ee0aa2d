package flows

import (
	"context"
	"errors"
)

type ConsumedCode struct {
	CodeID    string
	AccountID string
}

type VerifyMetrics struct {
	VerifySuccess int
	VerifyFailure int
}

type VerifyEvents struct {
	RecoveryVerify string
	RecoveryReplay string
}

type VerifyErrors struct {
	EngineNotReady  error
	AccountNotFound error
	CodeInvalid     error
	Unavailable     error
}

type VerifyDeps struct {
	CodeDigits int

	GetAccountByIdentifier func(string) (RecoveryAccount, error)
	HashCode               func(string) [32]byte
	ConsumeCode            func(context.Context, string, [32]byte) (ConsumedCode, error)
	MintCredential         func(accountID string) (string, error)
	MapStoreError          func(error) error
	IsStoreNotFound        func(error) bool

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics VerifyMetrics
	Events  VerifyEvents
	Errors  VerifyErrors
}

// RunVerifyCode consumes a one-time code exactly once and mints the recovery
// credential. Wrong, expired, consumed, and superseded codes all fail with
// the same CodeInvalid error.
func RunVerifyCode(ctx context.Context, identifier, code string, deps VerifyDeps) (string, error) {
	normalizeVerifyDeps(&deps)

	if deps.GetAccountByIdentifier == nil ||
		deps.HashCode == nil ||
		deps.ConsumeCode == nil ||
		deps.MintCredential == nil {
		return "", deps.Errors.EngineNotReady
	}

	identifier = NormalizeIdentifier(identifier)
	if identifier == "" {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryVerify, false, "", deps.Errors.AccountNotFound, func() map[string]string {
			return map[string]string{
				"reason": "empty_identifier",
			}
		})
		return "", deps.Errors.AccountNotFound
	}

	if len(code) != deps.CodeDigits || !isDigits(code) {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryVerify, false, "", deps.Errors.CodeInvalid, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "code_format",
			}
		})
		return "", deps.Errors.CodeInvalid
	}

	account, err := deps.GetAccountByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryVerify, false, "", deps.Errors.AccountNotFound, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		return "", deps.Errors.AccountNotFound
	}

	consumed, err := deps.ConsumeCode(ctx, account.AccountID, deps.HashCode(code))
	if err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.VerifyFailure)
		if deps.IsStoreNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.RecoveryReplay, false, account.AccountID, mapped, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
		} else {
			deps.EmitAudit(ctx, deps.Events.RecoveryVerify, false, account.AccountID, mapped, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
		}
		return "", mapped
	}

	credential, err := deps.MintCredential(consumed.AccountID)
	if err != nil {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryVerify, false, consumed.AccountID, deps.Errors.Unavailable, func() map[string]string {
			return map[string]string{
				"reason": "credential_mint_failed",
			}
		})
		return "", deps.Errors.Unavailable
	}

	deps.MetricInc(deps.Metrics.VerifySuccess)
	deps.EmitAudit(ctx, deps.Events.RecoveryVerify, true, consumed.AccountID, nil, func() map[string]string {
		return map[string]string{
			"code_id": consumed.CodeID,
		}
	})
	return credential, nil
}

func isDigits(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

func normalizeVerifyDeps(deps *VerifyDeps) {
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.Unavailable }
	}
	if deps.IsStoreNotFound == nil {
		deps.IsStoreNotFound = func(error) bool { return false }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
