// Package recovery provides an account-recovery engine built around short-lived
// numeric one-time codes and signed recovery credentials.
//
// The flow has three steps: [Engine.RequestReset] issues a code and hands it to a
// notification [Dispatcher], [Engine.VerifyCode] consumes the code exactly once and
// returns a signed recovery credential, and [Engine.ResetPassword] exchanges that
// credential for a password update through the caller's [AccountProvider].
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// recovery is the public surface. It exposes [Engine], [Builder], [Config], the
// collaborator interfaces ([AccountProvider], [Dispatcher], [AuditSink]) and value
// types (MetricsSnapshot, AuditEvent, Notification). All internal coordination —
// flow orchestration, code persistence, notification dispatch — lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose database handles, internal stores, or record encodings in its public API.
//   - Reveal through its results whether an identifier maps to an account;
//     RequestReset reports generic success for unknown identifiers.
//   - Let notification delivery failures surface in operation results; delivery is
//     fire-and-forget and observable only through logs, audit events, and metrics.
package recovery
