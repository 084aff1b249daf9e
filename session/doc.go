// Package session holds the client-side credential pair and the stores that
// persist it for the lifetime of one signed-in session.
//
// # Storage layout
//
// Every store exposes the same two logical keys, "accessToken" and
// "refreshToken". [MemoryStore] keeps them in process memory; [RedisStore]
// keeps them in one Redis hash per session so that several processes can share
// a signed-in session.
//
// # Architecture boundaries
//
// This package owns the [Credentials] model and [Store] implementations. It
// does NOT decide when to refresh, talk to the authentication server, or
// interpret token contents; those belong to the client.
//
// # What this package must NOT do
//
//   - Import goAuthClient or jwt (no upward imports).
//   - Log or otherwise expose token values.
//   - Merge credentials on Save; callers pass the complete pair.
package session
