// Package ticket issues and verifies signed session tickets: short-lived
// HS256 tokens that carry an app namespace and a session token, so edge
// services can pass session references through untrusted intermediaries
// without exposing the raw token.
package ticket
