package recovery

// Purpose defines a public type used by recovery APIs.
//
// Purpose instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Purpose string

const (
	// PurposePasswordReset is an exported constant or variable used by the recovery engine.
	PurposePasswordReset Purpose = "password_reset"
)

// RequestAcceptedMessage is the generic caller-facing response for
// [Engine.RequestReset]. Transports should return this sentence for every
// request outcome so the response body never reveals whether the identifier
// maps to an account.
const RequestAcceptedMessage = "If an account exists with this identifier, a recovery code has been sent."

// AccountRecord defines a public type used by recovery APIs.
//
// AccountRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountRecord struct {
	// AccountID is the stable identifier the engine embeds in recovery
	// credentials and passes back to UpdatePasswordHash.
	AccountID string
	// Identifier is the lookup key the account holder types in (typically an
	// email address). The engine normalizes it (trim + lower-case) before lookup.
	Identifier string
	// Contact is the delivery address for recovery notifications. Usually the
	// same as Identifier, but providers may route codes elsewhere.
	Contact string
}

// AccountProvider is the caller-implemented bridge to the application's
// account store. Implementations must be safe for concurrent use.
//
// GetAccountByIdentifier receives an already-normalized identifier. Any lookup
// error is treated as "no such account" and never surfaces from RequestReset;
// context cancellation errors are passed through.
//
// UpdatePasswordHash should return [ErrProviderAccountNotFound] (possibly
// wrapped) when the account id does not exist.
type AccountProvider interface {
	GetAccountByIdentifier(identifier string) (AccountRecord, error)
	UpdatePasswordHash(accountID, newHash string) error
}
