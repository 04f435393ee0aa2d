package internaldefs

import (
	recovery "github.com/smartspend/recovery"
)

// CounterDef defines a public type used by recovery APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   recovery.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by recovery APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   recovery.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the recovery engine.
var CounterDefs = []CounterDef{
	{ID: recovery.MetricRequestIssued, Name: "recovery_request_issued_total", Help: "Recovery requests that issued a one-time code."},
	{ID: recovery.MetricRequestAnonymous, Name: "recovery_request_anonymous_total", Help: "Recovery requests for unknown identifiers answered generically."},
	{ID: recovery.MetricVerifySuccess, Name: "recovery_verify_success_total", Help: "Successful code verifications."},
	{ID: recovery.MetricVerifyFailure, Name: "recovery_verify_failure_total", Help: "Failed code verifications."},
	{ID: recovery.MetricConfirmSuccess, Name: "recovery_confirm_success_total", Help: "Successful password resets."},
	{ID: recovery.MetricConfirmFailure, Name: "recovery_confirm_failure_total", Help: "Failed password resets."},
	{ID: recovery.MetricCodesSuperseded, Name: "recovery_codes_superseded_total", Help: "One-time codes invalidated by later issuance or reset."},
	{ID: recovery.MetricNotifyDelivered, Name: "recovery_notify_delivered_total", Help: "Recovery notifications delivered by the dispatcher."},
	{ID: recovery.MetricNotifyFailed, Name: "recovery_notify_failed_total", Help: "Recovery notifications the dispatcher failed to deliver."},
	{ID: recovery.MetricNotifyDropped, Name: "recovery_notify_dropped_total", Help: "Recovery notifications dropped due to a full queue."},
}

// HistogramDefs is an exported constant or variable used by the recovery engine.
var HistogramDefs = []HistogramDef{
	{ID: recovery.MetricVerifyLatency, Name: "recovery_verify_latency_seconds", Help: "VerifyCode latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the recovery engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the recovery engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
