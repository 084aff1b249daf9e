// Package internal holds code private to goAuthClient.
//
// # Sub-packages
//
//   - flows: the refresh, login and logout procedures run against a credential store
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthClient API.
//   - Be imported by any package outside the goAuthClient module.
package internal
