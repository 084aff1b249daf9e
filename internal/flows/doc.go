// Package flows contains pure-function orchestrators for the client's
// credential lifecycle.
//
// Each flow function (RunRefresh, RunLogin, RunLogout) accepts a typed
// dependency struct and returns results without side-effects beyond those
// dependencies. The root package owns coordination (single-flight, waiter
// queue) and observability; flows own the ordered store and exchange calls.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthClient (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
