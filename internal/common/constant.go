// Package common contains shared constants and sentinel errors used across
// the items API components.
package common

const (
	// AuthorizationHeader carries the bearer credential on HTTP requests and,
	// lower-cased, in gRPC metadata.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the only authorization scheme the server accepts.
	BearerScheme = "Bearer"

	// TokenTypeBearer is reported to clients in the login response.
	TokenTypeBearer = "bearer"

	// APIVersion is exposed by the health endpoint.
	APIVersion = "v1"
)
