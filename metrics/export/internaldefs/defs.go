package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef maps a client counter to its exported name.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef maps a client histogram to its exported name.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricRefreshStarted, Name: "goauthclient_refresh_started_total", Help: "Refresh cycles started."},
	{ID: goAuthClient.MetricRefreshSuccess, Name: "goauthclient_refresh_success_total", Help: "Refresh cycles that stored a new access token."},
	{ID: goAuthClient.MetricRefreshFailure, Name: "goauthclient_refresh_failure_total", Help: "Refresh cycles that ended the session."},
	{ID: goAuthClient.MetricRefreshQueued, Name: "goauthclient_refresh_queued_total", Help: "Requests queued behind an in-flight refresh."},
	{ID: goAuthClient.MetricRefreshNoToken, Name: "goauthclient_refresh_no_token_total", Help: "Failed cycles with no stored refresh token."},
	{ID: goAuthClient.MetricRefreshRejected, Name: "goauthclient_refresh_rejected_total", Help: "Failed cycles refused by the refresh endpoint."},
	{ID: goAuthClient.MetricRefreshTransportError, Name: "goauthclient_refresh_transport_error_total", Help: "Failed cycles that could not reach the refresh endpoint."},
	{ID: goAuthClient.MetricRefreshStoreError, Name: "goauthclient_refresh_store_error_total", Help: "Failed cycles caused by the credential store."},
	{ID: goAuthClient.MetricRefreshRotated, Name: "goauthclient_refresh_rotated_total", Help: "Successful cycles that rotated the refresh token."},
	{ID: goAuthClient.MetricRequestReplayed, Name: "goauthclient_request_replayed_total", Help: "Requests replayed after a 401."},
	{ID: goAuthClient.MetricStaleTokenReplayed, Name: "goauthclient_stale_token_replayed_total", Help: "Replays that reused a token stored by an earlier cycle."},
	{ID: goAuthClient.MetricRetryExhausted, Name: "goauthclient_retry_exhausted_total", Help: "Replays that received a second 401."},
	{ID: goAuthClient.MetricReplayUnsupported, Name: "goauthclient_replay_unsupported_total", Help: "401s passed through because the body cannot be replayed."},
	{ID: goAuthClient.MetricProactiveRefresh, Name: "goauthclient_proactive_refresh_total", Help: "Refreshes triggered before the access token expired."},
	{ID: goAuthClient.MetricStoreReadFailure, Name: "goauthclient_store_read_failure_total", Help: "Credential store reads that failed on the request path."},
	{ID: goAuthClient.MetricSessionExpired, Name: "goauthclient_session_expired_total", Help: "Sessions ended by a failed refresh."},
	{ID: goAuthClient.MetricLogin, Name: "goauthclient_login_total", Help: "Credential pairs stored by Login."},
	{ID: goAuthClient.MetricLogout, Name: "goauthclient_logout_total", Help: "Logout operations."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRefreshLatency, Name: "goauthclient_refresh_latency_seconds", Help: "Refresh cycle latency histogram."},
}

// AuditDroppedName is the counter for audit events dropped on a full buffer.
const AuditDroppedName = "goauthclient_audit_dropped_total"

// AuditDroppedHelp describes [AuditDroppedName].
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramBounds are the bucket upper bounds in seconds, as exposition labels.
var HistogramBounds = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundValues are [HistogramBounds] without the +Inf bucket.
var HistogramBoundValues = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// HistogramBoundSuffix are [HistogramBounds] usable inside instrument names.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array. Missing
// buckets read as zero.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
