// Package auth provides bearer token authentication for Pantry.
package auth

// Header and scheme constants.
const (
	// AuthorizationHeader is the HTTP header carrying credentials.
	AuthorizationHeader = "Authorization"

	// SchemeToken is the credential scheme issued by the token endpoint.
	SchemeToken = "Token"

	// SchemeBearer is accepted as an alias for SchemeToken.
	SchemeBearer = "Bearer"
)
