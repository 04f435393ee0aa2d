package flows

import (
	"context"
	"errors"
	"testing"
)

var (
	errCredentialInvalid = errors.New("credential invalid")
	errPasswordPolicy    = errors.New("password policy")
	errProviderMissing   = errors.New("provider: missing")
)

func baseConfirmDeps() ConfirmDeps {
	return ConfirmDeps{
		MinPasswordLength: 6,
		RequiredPurpose:   "password_reset",

		ParseCredential: func(token string) (CredentialClaims, error) {
			if token == "good" {
				return CredentialClaims{AccountID: "acct-1", Purpose: "password_reset"}, nil
			}
			if token == "wrong-purpose" {
				return CredentialClaims{AccountID: "acct-1", Purpose: "email_verification"}, nil
			}
			return CredentialClaims{}, errors.New("bad token")
		},
		HashPassword:       func(string) (string, error) { return "$argon2id$hash", nil },
		UpdatePasswordHash: func(string, string) error { return nil },
		IsAccountNotFound:  func(err error) bool { return errors.Is(err, errProviderMissing) },
		SupersedeActive:    func(context.Context, string) (int64, error) { return 0, nil },

		Errors: ConfirmErrors{
			EngineNotReady:    errNotReady,
			CredentialInvalid: errCredentialInvalid,
			PasswordPolicy:    errPasswordPolicy,
			AccountNotFound:   errAccountNotFound,
			Unavailable:       errUnavailable,
		},
	}
}

func TestRunResetPasswordSuccess(t *testing.T) {
	deps := baseConfirmDeps()

	var updatedAccount, updatedHash string
	deps.UpdatePasswordHash = func(accountID, hash string) error {
		updatedAccount = accountID
		updatedHash = hash
		return nil
	}
	var superseded bool
	deps.SupersedeActive = func(_ context.Context, accountID string) (int64, error) {
		superseded = true
		if accountID != "acct-1" {
			t.Errorf("superseded account = %q", accountID)
		}
		return 1, nil
	}

	if err := RunResetPassword(context.Background(), "good", "new-password", deps); err != nil {
		t.Fatalf("RunResetPassword failed: %v", err)
	}
	if updatedAccount != "acct-1" || updatedHash != "$argon2id$hash" {
		t.Fatalf("update called with (%q, %q)", updatedAccount, updatedHash)
	}
	if !superseded {
		t.Fatal("remaining codes were not retired")
	}
}

func TestRunResetPasswordBadCredential(t *testing.T) {
	deps := baseConfirmDeps()

	for _, token := range []string{"", "garbage", "wrong-purpose"} {
		if err := RunResetPassword(context.Background(), token, "new-password", deps); !errors.Is(err, errCredentialInvalid) {
			t.Fatalf("token %q error = %v, want credential invalid", token, err)
		}
	}
}

func TestRunResetPasswordPolicy(t *testing.T) {
	deps := baseConfirmDeps()
	deps.UpdatePasswordHash = func(string, string) error {
		t.Fatal("update called despite policy violation")
		return nil
	}

	if err := RunResetPassword(context.Background(), "good", "tiny", deps); !errors.Is(err, errPasswordPolicy) {
		t.Fatalf("short password error = %v, want policy", err)
	}
}

func TestRunResetPasswordPolicyCountsRunes(t *testing.T) {
	deps := baseConfirmDeps()

	// Six runes, more than six bytes.
	if err := RunResetPassword(context.Background(), "good", "pässwö", deps); err != nil {
		t.Fatalf("six-rune password rejected: %v", err)
	}
}

func TestRunResetPasswordAccountGone(t *testing.T) {
	deps := baseConfirmDeps()
	deps.UpdatePasswordHash = func(string, string) error { return errProviderMissing }

	if err := RunResetPassword(context.Background(), "good", "new-password", deps); !errors.Is(err, errAccountNotFound) {
		t.Fatalf("missing account error = %v, want account not found", err)
	}
}

func TestRunResetPasswordUpdateFailure(t *testing.T) {
	deps := baseConfirmDeps()
	deps.UpdatePasswordHash = func(string, string) error { return errors.New("db gone") }

	if err := RunResetPassword(context.Background(), "good", "new-password", deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("update failure error = %v, want unavailable", err)
	}
}

func TestRunResetPasswordCleanupFailure(t *testing.T) {
	deps := baseConfirmDeps()
	deps.SupersedeActive = func(context.Context, string) (int64, error) {
		return 0, errors.New("store gone")
	}
	deps.MapStoreError = func(error) error { return errUnavailable }

	if err := RunResetPassword(context.Background(), "good", "new-password", deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("cleanup failure error = %v, want unavailable", err)
	}
}

func TestRunResetPasswordMissingDeps(t *testing.T) {
	deps := baseConfirmDeps()
	deps.HashPassword = nil

	if err := RunResetPassword(context.Background(), "good", "new-password", deps); !errors.Is(err, errNotReady) {
		t.Fatalf("missing dep error = %v, want not ready", err)
	}
}
