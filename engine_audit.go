package recovery

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRecoveryRequest     = "recovery_request"
	auditEventRecoveryVerify      = "recovery_verify"
	auditEventRecoveryReplay      = "recovery_replay"
	auditEventRecoveryConfirm     = "recovery_confirm"
	auditEventNotificationFailure = "notification_failure"
)

// AuditErrorCode defines a public type used by recovery APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrAccountNotFound   AuditErrorCode = "account_not_found"
	auditErrCodeInvalid       AuditErrorCode = "code_invalid"
	auditErrCredentialInvalid AuditErrorCode = "credential_invalid"
	auditErrPasswordPolicy    AuditErrorCode = "password_policy"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrProviderAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrCodeInvalid):
		return auditErrCodeInvalid
	case errors.Is(err, ErrCredentialInvalid):
		return auditErrCredentialInvalid
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrRecoveryUnavailable),
		errors.Is(err, ErrEngineNotReady):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
