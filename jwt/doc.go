// Package jwt reads and issues compact HS256 access tokens.
//
// The client side only ever inspects tokens it was handed: [Inspector] reads
// the exp claim without verifying the signature, which is enough to decide
// whether a proactive refresh is due. [Manager] signs and verifies tokens and
// is used by the authtest fake server.
//
// # What this package must NOT do
//
//   - Treat an unverified claim as proof of identity.
//   - Access a credential store or perform network I/O.
package jwt
