package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/permission"
	"github.com/kdufoot/matchfinder/internal/quota"
)

// Gate is the permission gate as seen by the HTTP layer.
type Gate interface {
	Authorize(claims *permission.Claims, p permission.Permission) permission.Result
	Check(ctx context.Context, claims *permission.Claims, p permission.Permission) (permission.Result, error)
}

// RequirePermission rejects requests whose token does not grant p.  The
// quota of p is left untouched.
func RequirePermission(g Gate, p permission.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if res := g.Authorize(ClaimsFrom(c), p); !res.Allowed {
				return deny(c, res, time.Now())
			}
			return next(c)
		}
	}
}

// RequireQuota is RequirePermission plus check-and-consume of p's quota.
// It suits routes with nothing to validate before the unit is spent.
func RequireQuota(g Gate, p permission.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if admitted, err := Consume(c, g, p); !admitted {
				return err
			}
			return next(c)
		}
	}
}

// Consume runs the gate's check-and-consume of p for the caller of c.
// When it reports false the denial has already been written to c and the
// returned error is that write's.  Handlers call it once the request has
// passed validation.
func Consume(c echo.Context, g Gate, p permission.Permission) (bool, error) {
	ctx := c.Request().Context()
	res, err := g.Check(ctx, ClaimsFrom(c), p)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("permission", string(p)).Msg("quota evaluation failed")
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
	}
	if !res.Allowed {
		return false, deny(c, res, time.Now())
	}
	if res.Quota != nil {
		h := c.Response().Header()
		h.Set("X-Quota-Limit", strconv.Itoa(res.Quota.Limit))
		h.Set("X-Quota-Remaining", strconv.Itoa(max(0, res.Quota.Limit-res.Quota.Current)))
	}
	return true, nil
}

func deny(c echo.Context, res permission.Result, now time.Time) error {
	body := echo.Map{"success": false, "reason": res.Reason}
	status := http.StatusForbidden
	switch res.Reason {
	case permission.ReasonMissingToken:
		status = http.StatusUnauthorized
		body["error"] = "authentication required"
	case permission.ReasonQuotaExceeded:
		status = http.StatusTooManyRequests
		body["error"] = "quota exceeded"
	default:
		body["error"] = "permission denied"
	}
	if res.Quota != nil {
		body["quota"] = quotaBody(res.Quota)
		if res.Reason == permission.ReasonQuotaExceeded {
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter(res.Quota.ResetAt, now)))
		}
	}
	return c.JSON(status, body)
}

func quotaBody(d *quota.Decision) echo.Map {
	return echo.Map{
		"current":  d.Current,
		"limit":    d.Limit,
		"reset_at": d.ResetAt.UTC().Format(time.RFC3339),
	}
}

// retryAfter is the whole number of seconds until reset, at least 1.
func retryAfter(reset, now time.Time) int {
	s := int(math.Ceil(reset.Sub(now).Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// RequireToken rejects anonymous requests with 401 but checks no
// permission.
func RequireToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserID(c) == "" {
				return deny(c, permission.Result{Reason: permission.ReasonMissingToken}, time.Now())
			}
			return next(c)
		}
	}
}
