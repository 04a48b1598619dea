package sekura

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeNetworkFailure     = "NETWORK_FAILURE"
	textCodeServerError        = "SERVER_ERROR"
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeCredentialMissing  = "CREDENTIAL_NOT_FOUND"
	textCodeMalformedResponse  = "MALFORMED_RESPONSE"
	textCodeTokenExpired       = "TOKEN_EXPIRED"
	textCodeStorageFailure     = "STORAGE_FAILURE"
)

// ErrNetworkFailure is returned when the transport fails before a response
// is read (DNS, connect, timeout).
var ErrNetworkFailure = goerrors.New("network request failed", goerrors.CategoryOperation).
	WithTextCode(textCodeNetworkFailure)

// ErrServerError is returned for 5xx answers. The transport worked; the
// server could not. Retried like a transport failure, reported separately.
var ErrServerError = goerrors.New("server error", goerrors.CategoryOperation).
	WithTextCode(textCodeServerError)

// ErrInvalidCredentials is the server-reported auth failure.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrCredentialNotFound is returned by credential stores for absent keys.
var ErrCredentialNotFound = goerrors.New("credential not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeCredentialMissing).
	WithCode(goerrors.CodeNotFound)

// ErrMalformedResponse is returned when the server payload fails to decode
// or fails schema validation at the client boundary.
var ErrMalformedResponse = goerrors.New("malformed server response", goerrors.CategoryOperation).
	WithTextCode(textCodeMalformedResponse)

// ErrTokenExpired is returned by token validators for expired tokens.
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrStorageFailure wraps local persistence failures. The session manager
// swallows these toward the anonymous state rather than surfacing them.
var ErrStorageFailure = goerrors.New("credential storage failed", goerrors.CategoryInternal).
	WithTextCode(textCodeStorageFailure)

// fallbackAuthError is shown when the server gives no usable message.
const fallbackAuthError = "something went wrong"

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	return hasTextCode(err, textCodeNetworkFailure)
}

// IsServerError reports whether err is a 5xx answer received over a
// healthy transport.
func IsServerError(err error) bool {
	return hasTextCode(err, textCodeServerError)
}

// IsAuthError reports whether err is a server-reported credential rejection.
func IsAuthError(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsTokenExpired reports whether err marks an expired session token.
func IsTokenExpired(err error) bool {
	return hasTextCode(err, textCodeTokenExpired)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
