// Package middleware holds the echo middleware of the API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/permission"
)

// JWTAuth returns an Echo middleware that verifies a Bearer access token
// and stores its subject and permissions in the context (see ClaimsFrom).
// A request without an Authorization header passes through anonymously
// so the permission gate can answer with missing_token; a header that is
// present but does not verify is rejected with 401 here.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	key := []byte(secret)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := parser.Parse(raw, func(*jwt.Token) (any, error) { return key, nil })
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid token"})
			}
			mc, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid claims"})
			}
			claims := claimsFromMap(mc)
			if claims.Subject == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "token without subject"})
			}
			c.Set(claimsKey, claims)

			// Tag the request logger with the caller.
			ctx := c.Request().Context()
			l := zerolog.Ctx(ctx).With().Str("user_id", claims.Subject).Logger()
			c.SetRequest(c.Request().WithContext(l.WithContext(ctx)))
			return next(c)
		}
	}
}

// claimsFromMap reads "sub" plus the union of the "permissions" array
// and the space-delimited "scope" string.
func claimsFromMap(mc jwt.MapClaims) *permission.Claims {
	out := &permission.Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		out.Subject = sub
	}
	seen := map[string]bool{}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out.Permissions = append(out.Permissions, p)
		}
	}
	if list, ok := mc["permissions"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	}
	if scope, ok := mc["scope"].(string); ok {
		for _, s := range strings.Fields(scope) {
			add(s)
		}
	}
	return out
}
