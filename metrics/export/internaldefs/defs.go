package internaldefs

import (
	"github.com/MrEthical07/aegis"
)

// CounterDef names one engine counter for exposition.
type CounterDef struct {
	ID   aegis.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exposition.
type HistogramDef struct {
	ID   aegis.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter fed by Engine.AuditDropped.
const (
	AuditDroppedName = "aegis_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

var CounterDefs = []CounterDef{
	{ID: aegis.MetricSignUpSuccess, Name: "aegis_sign_up_success_total", Help: "Successful sign-ups."},
	{ID: aegis.MetricSignUpFailure, Name: "aegis_sign_up_failure_total", Help: "Rejected or failed sign-ups."},
	{ID: aegis.MetricSignUpDuplicate, Name: "aegis_sign_up_duplicate_total", Help: "Sign-ups rejected because the email is registered."},
	{ID: aegis.MetricSignInSuccess, Name: "aegis_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: aegis.MetricSignInFailure, Name: "aegis_sign_in_failure_total", Help: "Rejected or failed sign-ins."},
	{ID: aegis.MetricSignOut, Name: "aegis_sign_out_total", Help: "Completed sign-outs."},
	{ID: aegis.MetricSessionCreated, Name: "aegis_session_created_total", Help: "Created sessions."},
	{ID: aegis.MetricSessionCreateFailed, Name: "aegis_session_create_failed_total", Help: "Session creations that failed."},
	{ID: aegis.MetricSessionRevoked, Name: "aegis_session_revoked_total", Help: "Single-session revocations."},
	{ID: aegis.MetricSessionRevokedAll, Name: "aegis_session_revoked_all_total", Help: "Revoke-all operations."},
	{ID: aegis.MetricRegistryRetryExhausted, Name: "aegis_registry_retry_exhausted_total", Help: "Session registry updates left unverified after all attempts."},
	{ID: aegis.MetricSessionResolvedFromCache, Name: "aegis_session_resolved_cache_total", Help: "Sessions resolved from the cache."},
	{ID: aegis.MetricSessionResolvedFromStore, Name: "aegis_session_resolved_store_total", Help: "Sessions resolved from the store."},
	{ID: aegis.MetricSessionResolveMiss, Name: "aegis_session_resolve_miss_total", Help: "Session resolutions that found no valid session."},
}

var HistogramDefs = []HistogramDef{
	{ID: aegis.MetricResolveLatency, Name: "aegis_session_resolve_latency_seconds", Help: "Session resolution latency."},
}

// HistogramBounds are the Prometheus le labels of the eight engine buckets.
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

// HistogramBoundSuffix spells HistogramBounds for instrument names.
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

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
