package common

// AccessTokenHeaderName is the gRPC metadata key that may carry a bare access
// token. AuthorizationHeaderName carries the "Bearer <token>" form and is
// checked first.
const (
	AccessTokenHeaderName   = "access_token"
	AuthorizationHeaderName = "authorization"
)
