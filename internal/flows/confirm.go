package flows

import (
	"context"
	"unicode/utf8"
)

type CredentialClaims struct {
	AccountID string
	Purpose   string
}

type ConfirmMetrics struct {
	ConfirmSuccess  int
	ConfirmFailure  int
	CodesSuperseded int
}

type ConfirmEvents struct {
	RecoveryConfirm string
}

type ConfirmErrors struct {
	EngineNotReady    error
	CredentialInvalid error
	PasswordPolicy    error
	AccountNotFound   error
	Unavailable       error
}

type ConfirmDeps struct {
	MinPasswordLength int
	RequiredPurpose   string

	ParseCredential    func(string) (CredentialClaims, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(accountID, hash string) error
	IsAccountNotFound  func(error) bool
	SupersedeActive    func(context.Context, string) (int64, error)
	MapStoreError      func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics ConfirmMetrics
	Events  ConfirmEvents
	Errors  ConfirmErrors
}

// RunResetPassword exchanges a recovery credential for a password update and
// invalidates any one-time codes still active for the account. Credential
// failures of every kind collapse into CredentialInvalid; the password policy
// is checked before any write happens.
func RunResetPassword(ctx context.Context, credential, newPassword string, deps ConfirmDeps) error {
	normalizeConfirmDeps(&deps)

	if deps.ParseCredential == nil ||
		deps.HashPassword == nil ||
		deps.UpdatePasswordHash == nil ||
		deps.SupersedeActive == nil {
		return deps.Errors.EngineNotReady
	}

	if credential == "" {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, "", deps.Errors.CredentialInvalid, func() map[string]string {
			return map[string]string{
				"reason": "empty_credential",
			}
		})
		return deps.Errors.CredentialInvalid
	}

	claims, err := deps.ParseCredential(credential)
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, "", deps.Errors.CredentialInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return deps.Errors.CredentialInvalid
	}

	if claims.Purpose != deps.RequiredPurpose {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, claims.AccountID, deps.Errors.CredentialInvalid, func() map[string]string {
			return map[string]string{
				"reason": "purpose_mismatch",
			}
		})
		return deps.Errors.CredentialInvalid
	}

	if utf8.RuneCountInString(newPassword) < deps.MinPasswordLength {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, claims.AccountID, deps.Errors.PasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "min_length",
			}
		})
		return deps.Errors.PasswordPolicy
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, claims.AccountID, deps.Errors.Unavailable, func() map[string]string {
			return map[string]string{
				"reason": "hash_failed",
			}
		})
		return deps.Errors.Unavailable
	}

	if err := deps.UpdatePasswordHash(claims.AccountID, hash); err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		if deps.IsAccountNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, claims.AccountID, deps.Errors.AccountNotFound, func() map[string]string {
				return map[string]string{
					"reason": "account_missing",
				}
			})
			return deps.Errors.AccountNotFound
		}
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, claims.AccountID, deps.Errors.Unavailable, func() map[string]string {
			return map[string]string{
				"reason": "update_hash_failed",
			}
		})
		return deps.Errors.Unavailable
	}

	superseded, err := deps.SupersedeActive(ctx, claims.AccountID)
	if err != nil {
		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, claims.AccountID, mapped, func() map[string]string {
			return map[string]string{
				"reason": "cleanup_failed",
			}
		})
		return mapped
	}
	for i := int64(0); i < superseded; i++ {
		deps.MetricInc(deps.Metrics.CodesSuperseded)
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, true, claims.AccountID, nil, nil)
	return nil
}

func normalizeConfirmDeps(deps *ConfirmDeps) {
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(error) bool { return false }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.Unavailable }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
