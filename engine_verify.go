package recovery

import (
	"context"
	"time"

	"github.com/smartspend/recovery/internal"
	"github.com/smartspend/recovery/internal/flows"
)

// VerifyCode exchanges a one-time code for a signed recovery credential. The
// code is consumed atomically: of two concurrent calls with the same code,
// exactly one receives a credential and the other gets ErrCodeInvalid.
//
// VerifyCode may return ErrAccountNotFound for unknown identifiers,
// ErrCodeInvalid for wrong, expired, consumed, or superseded codes, and
// ErrRecoveryUnavailable when the store or signer fails.
func (e *Engine) VerifyCode(ctx context.Context, identifier, code string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	start := time.Now()

	deps := flows.VerifyDeps{
		CodeDigits: e.config.Code.Digits,

		GetAccountByIdentifier: e.lookupAccount,
		HashCode:               internal.HashCode,
		ConsumeCode:            e.consumeCode,
		MintCredential:         e.mintCredential,
		MapStoreError:          mapCodeStoreError,
		IsStoreNotFound:        isCodeStoreNotFound,

		MetricInc: e.flowMetricInc,
		EmitAudit: e.flowEmitAudit,

		Metrics: flows.VerifyMetrics{
			VerifySuccess: int(MetricVerifySuccess),
			VerifyFailure: int(MetricVerifyFailure),
		},
		Events: flows.VerifyEvents{
			RecoveryVerify: auditEventRecoveryVerify,
			RecoveryReplay: auditEventRecoveryReplay,
		},
		Errors: flows.VerifyErrors{
			EngineNotReady:  ErrEngineNotReady,
			AccountNotFound: ErrAccountNotFound,
			CodeInvalid:     ErrCodeInvalid,
			Unavailable:     ErrRecoveryUnavailable,
		},
	}

	credential, err := flows.RunVerifyCode(ctx, identifier, code, deps)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	return credential, err
}

func (e *Engine) consumeCode(ctx context.Context, accountID string, codeHash [32]byte) (flows.ConsumedCode, error) {
	opCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	rec, err := e.codes.Consume(opCtx, accountID, string(PurposePasswordReset), codeHash, time.Now())
	if err != nil {
		return flows.ConsumedCode{}, err
	}
	return flows.ConsumedCode{
		CodeID:    rec.ID,
		AccountID: rec.AccountID,
	}, nil
}

func (e *Engine) mintCredential(accountID string) (string, error) {
	if e.credentials == nil {
		return "", ErrEngineNotReady
	}
	return e.credentials.Issue(accountID, string(PurposePasswordReset))
}
