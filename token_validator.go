package sekura

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// TokenValidator decides whether a persisted token is still worth restoring.
// A non-nil error makes Restore treat the credential as absent.
type TokenValidator func(token string) error

// ExpiryValidator rejects JWTs whose exp claim has passed. The signature is
// deliberately not verified: the server re-checks every request, this only
// keeps Restore from reviving a session the server would reject anyway.
// Tokens without an exp claim, or that are not JWTs at all, pass through.
func ExpiryValidator(clock clockwork.Clock) TokenValidator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	return func(token string) error {
		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil
		}

		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return nil
		}
		if exp.Time.Before(clock.Now()) {
			return goerrors.Wrap(jwt.ErrTokenExpired, goerrors.CategoryAuth, "session token expired").
				WithTextCode(textCodeTokenExpired).
				WithCode(goerrors.CodeUnauthorized)
		}
		return nil
	}
}
