package recovery

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the recovery engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrAccountNotFound is an exported constant or variable used by the recovery engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCodeInvalid is an exported constant or variable used by the recovery engine.
	ErrCodeInvalid = errors.New("recovery code invalid or expired")
	// ErrCredentialInvalid is an exported constant or variable used by the recovery engine.
	ErrCredentialInvalid = errors.New("recovery credential invalid")
	// ErrPasswordPolicy is an exported constant or variable used by the recovery engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrRecoveryUnavailable is an exported constant or variable used by the recovery engine.
	ErrRecoveryUnavailable = errors.New("recovery backend unavailable")
	// ErrProviderAccountNotFound is an exported constant or variable used by the recovery engine.
	//
	// AccountProvider implementations should return (or wrap) this sentinel when
	// the account id passed to UpdatePasswordHash does not exist, so the engine
	// can map it to ErrAccountNotFound instead of ErrRecoveryUnavailable.
	ErrProviderAccountNotFound = errors.New("provider: account not found")
)
