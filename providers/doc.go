// Package providers implements the generic OAuth2 authorization-code
// strategy and the shared helpers used by the per-provider packages.
package providers
