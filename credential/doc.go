// Package credential mints and parses the short-lived signed token handed out
// after a one-time code is verified. The token is the only proof accepted by
// the password reset step; it carries the account ID and the recovery purpose
// and nothing else.
package credential
