package middleware

// identity.go holds the accessors handlers use to read the caller's
// identity.  JWTAuth stores the verified claims under claimsKey.

import (
	"github.com/labstack/echo/v4"

	"github.com/kdufoot/matchfinder/internal/permission"
)

const claimsKey = "claims"

// ClaimsFrom returns the verified claims of the request, or nil when no
// token was presented.
func ClaimsFrom(c echo.Context) *permission.Claims {
	if cl, ok := c.Get(claimsKey).(*permission.Claims); ok {
		return cl
	}
	return nil
}

// UserID returns the token subject, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if cl := ClaimsFrom(c); cl != nil {
		return cl.Subject
	}
	return ""
}
