package recovery

import (
	"context"
	"time"

	"github.com/smartspend/recovery/internal"
	"github.com/smartspend/recovery/internal/flows"
	"github.com/smartspend/recovery/internal/stores"
)

// RequestReset starts a password recovery for the given identifier. When the
// identifier maps to an account, a fresh one-time code is issued (superseding
// any earlier unconsumed code for the account) and handed to the notification
// pool. The returned error is nil for both known and unknown identifiers;
// callers should respond with [RequestAcceptedMessage] regardless.
//
// RequestReset may return an error when the code store or the engine itself is
// unavailable, never because the identifier is unknown.
func (e *Engine) RequestReset(ctx context.Context, identifier string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	deps := flows.RequestDeps{
		CodeDigits: e.config.Code.Digits,
		CodeTTL:    e.config.Code.TTL,

		GetAccountByIdentifier: e.lookupAccount,
		GenerateCode:           internal.NewCode,
		HashCode:               internal.HashCode,
		SaveCode:               e.saveCode,
		EnqueueNotification:    e.enqueueNotification,
		SleepEnumerationDelay:  sleepEnumerationDelay,
		MapStoreError:          mapCodeStoreError,

		MetricInc: e.flowMetricInc,
		EmitAudit: e.flowEmitAudit,

		Metrics: flows.RequestMetrics{
			RequestIssued:    int(MetricRequestIssued),
			RequestAnonymous: int(MetricRequestAnonymous),
		},
		Events: flows.RequestEvents{
			RecoveryRequest: auditEventRecoveryRequest,
		},
		Errors: flows.RequestErrors{
			EngineNotReady: ErrEngineNotReady,
			Unavailable:    ErrRecoveryUnavailable,
		},
	}

	return flows.RunRequestReset(ctx, identifier, deps)
}

func (e *Engine) lookupAccount(identifier string) (flows.RecoveryAccount, error) {
	if e.accounts == nil {
		return flows.RecoveryAccount{}, ErrEngineNotReady
	}
	record, err := e.accounts.GetAccountByIdentifier(identifier)
	if err != nil {
		return flows.RecoveryAccount{}, err
	}
	return flows.RecoveryAccount{
		AccountID: record.AccountID,
		Contact:   record.Contact,
	}, nil
}

func (e *Engine) saveCode(ctx context.Context, issue flows.CodeIssue) error {
	opCtx, cancel := e.storeCtx(ctx)
	defer cancel()

	return e.codes.Issue(opCtx, &stores.CodeRecord{
		AccountID: issue.AccountID,
		Purpose:   string(PurposePasswordReset),
		CodeHash:  stores.EncodeCodeHash(issue.CodeHash),
		IssuedAt:  issue.IssuedAt,
		ExpiresAt: issue.ExpiresAt,
	})
}

func (e *Engine) enqueueNotification(account flows.RecoveryAccount, code string, expiresAt time.Time) {
	e.notify.Enqueue(Notification{
		AccountID: account.AccountID,
		Recipient: account.Contact,
		Code:      code,
		Purpose:   PurposePasswordReset,
		ExpiresAt: expiresAt,
	})
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) flowEmitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, eventType, success, accountID, err, metadataBuilder)
}
