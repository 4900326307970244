package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/quota"
	"github.com/kdufoot/matchfinder/internal/repository"
	"github.com/kdufoot/matchfinder/internal/service"
)

// ok writes a success envelope with the given payload fields.
func ok(c echo.Context, status int, payload echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(status, body)
}

// badRequest writes a 400 envelope for malformed parameters.
func badRequest(c echo.Context, field, msg string) error {
	return fail(c, &service.ValidationError{Field: field, Reason: msg})
}

// fail maps err to a status code and an error envelope.  Unknown errors
// are logged and reported as 500 without their message.
func fail(c echo.Context, err error) error {
	var (
		ve *service.ValidationError
		qe *quota.ExceededError
	)
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"success": false, "error": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &qe):
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"success": false,
			"error":   "quota exceeded",
			"reason":  "quota_exceeded",
			"quota":   echo.Map{"current": qe.Current, "limit": qe.Limit, "reset_at": qe.ResetAt.UTC().Format(time.RFC3339)},
		})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "forbidden"})
	case errors.Is(err, service.ErrPostingUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "match not available"})
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("route", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
}
