// Package authtest runs an in-process storefront API and auth server for
// exercising goAuthClient end to end.
//
// Access tokens are HS256 JWTs stamped with a generation; [Server.ExpireAll]
// bumps the generation so every outstanding access token answers 401 at once.
// Refresh tokens are opaque random ids, optionally rotated on every refresh.
// Switches make the refresh endpoint reject, break, stall or hold requests,
// and counters report how often each endpoint was hit.
//
// # What this package must NOT do
//
//   - Stand in for a real authorization server. Tokens are test fixtures.
//   - Import goAuthClient (the client is the system under test).
package authtest
