// Package goAuthClient provides an authenticated HTTP client that attaches a bearer
// access token to every outgoing request and, on HTTP 401, refreshes the credential
// exactly once no matter how many requests failed concurrently.
//
// Every request that observed the 401 is queued behind the single in-flight refresh
// and replayed once with the new token. When the refresh fails the session is cleared,
// every queued request receives its own original 401, and the session-expired handler
// fires so the host application can send the user back to its login surface.
//
// # Architecture boundaries
//
// goAuthClient is the public surface. It exposes [Client], [Builder], [Config],
// [RefreshCoordinator], [Refresher] and value types (MetricsSnapshot, AuditEvent,
// SessionExpiredEvent). Credential persistence lives in session/, token inspection in
// jwt/, and the ordered store/exchange steps of a refresh in internal/flows.
//
// # What this package must NOT do
//
//   - Route refresh calls through the intercepting transport.
//   - Retry any response other than 401, or retry a request more than once.
//   - Log or audit token values.
//   - Decide navigation. Session expiry is reported, not acted on.
//
// # Performance contract
//
// A request that does not receive a 401 costs one store read and one header write on
// top of the base transport. A refresh cycle costs one store read, one refresh call
// and one store write regardless of how many requests are waiting on it.
package goAuthClient
