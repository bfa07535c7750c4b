package common

// Cookie names carrying the session tokens for browser clients.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName carries "Bearer <access token>" for non-cookie clients.
const AuthorizationHeaderName = "Authorization"

// Runtime modes. Anything other than ModeProduction exposes stack traces
// in error envelopes.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)
