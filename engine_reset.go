package recovery

import (
	"context"
	"errors"
	"time"

	"github.com/smartspend/recovery/internal/flows"
)

// ResetPassword exchanges a recovery credential for a password update. The new
// password is checked against the configured policy, hashed with Argon2id, and
// written through the account provider; any one-time codes still active for
// the account are invalidated afterwards.
//
// ResetPassword may return ErrCredentialInvalid for missing, malformed,
// expired, or wrong-purpose credentials, ErrPasswordPolicy when the new
// password is too short, ErrAccountNotFound when the credential's account no
// longer exists, and ErrRecoveryUnavailable on infrastructure failure.
func (e *Engine) ResetPassword(ctx context.Context, credential, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	deps := flows.ConfirmDeps{
		MinPasswordLength: e.config.Policy.MinPasswordLength,
		RequiredPurpose:   string(PurposePasswordReset),

		ParseCredential:    e.parseCredential,
		HashPassword:       e.hashPassword,
		UpdatePasswordHash: e.updatePasswordHash,
		IsAccountNotFound:  isProviderAccountNotFound,
		SupersedeActive:    e.supersedeActiveCodes,
		MapStoreError:      mapCodeStoreError,

		MetricInc: e.flowMetricInc,
		EmitAudit: e.flowEmitAudit,

		Metrics: flows.ConfirmMetrics{
			ConfirmSuccess:  int(MetricConfirmSuccess),
			ConfirmFailure:  int(MetricConfirmFailure),
			CodesSuperseded: int(MetricCodesSuperseded),
		},
		Events: flows.ConfirmEvents{
			RecoveryConfirm: auditEventRecoveryConfirm,
		},
		Errors: flows.ConfirmErrors{
			EngineNotReady:    ErrEngineNotReady,
			CredentialInvalid: ErrCredentialInvalid,
			PasswordPolicy:    ErrPasswordPolicy,
			AccountNotFound:   ErrAccountNotFound,
			Unavailable:       ErrRecoveryUnavailable,
		},
	}

	return flows.RunResetPassword(ctx, credential, newPassword, deps)
}

func (e *Engine) parseCredential(token string) (flows.CredentialClaims, error) {
	if e.credentials == nil {
		return flows.CredentialClaims{}, ErrEngineNotReady
	}
	claims, err := e.credentials.Parse(token)
	if err != nil {
		return flows.CredentialClaims{}, err
	}
	return flows.CredentialClaims{
		AccountID: claims.AccountID,
		Purpose:   claims.Purpose,
	}, nil
}

func (e *Engine) hashPassword(password string) (string, error) {
	if e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(password)
}

func (e *Engine) updatePasswordHash(accountID, hash string) error {
	if e.accounts == nil {
		return ErrEngineNotReady
	}
	return e.accounts.UpdatePasswordHash(accountID, hash)
}

func (e *Engine) supersedeActiveCodes(ctx context.Context, accountID string) (int64, error) {
	opCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	return e.codes.SupersedeActive(opCtx, accountID, string(PurposePasswordReset), time.Now())
}

func isProviderAccountNotFound(err error) bool {
	return errors.Is(err, ErrProviderAccountNotFound)
}
