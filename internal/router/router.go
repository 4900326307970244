// Package router wires middleware and routes onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/handler"
	"github.com/kdufoot/matchfinder/internal/middleware"
	"github.com/kdufoot/matchfinder/internal/permission"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Logger    zerolog.Logger
	DB        handler.Pinger
	Gate      middleware.Gate
	Matches   *handler.MatchHandler
	JWTSecret string
	// CORSOrigins lists allowed browser origins; empty disables CORS.
	CORSOrigins []string
}

// New builds the Echo instance with the shared middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Logger))
	if len(d.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: d.CORSOrigins}))
	}

	RegisterRoutes(e, d.DB)
	RegisterMatches(e, d.Matches, d.Gate, d.JWTSecret)
	return e
}

// RegisterRoutes registers the operational routes that do not require
// authentication: liveness, readiness and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterMatches registers the match routes under /v1.  Every route
// verifies the token; the permission column of each route is enforced by
// the gate.  Every admitted matches:create check consumes a unit.  Create
// and Update consume in the handler once the body has validated, so their
// routes only check the permission here.  Answering a request needs a
// token but no permission since ownership is checked by the service.
func RegisterMatches(e *echo.Echo, h *handler.MatchHandler, gate middleware.Gate, jwtSecret string) {
	g := e.Group("/v1/matches", middleware.JWTAuth(jwtSecret))

	read := middleware.RequirePermission(gate, permission.ReadAPI)
	create := middleware.RequirePermission(gate, permission.MatchesCreate)
	metered := middleware.RequireQuota(gate, permission.MatchesCreate)
	contact := middleware.RequirePermission(gate, permission.MatchesContact)

	g.GET("", h.List, read)
	g.GET("/requests", h.Incoming, metered)
	g.GET("/participations", h.Participations, contact)
	g.GET("/:id", h.Get, read)

	g.POST("", h.Create, create)
	g.PUT("/:id", h.Update, create)
	g.DELETE("/:id", h.Delete, metered)

	g.POST("/:id/contact", h.Contact, contact)
	g.PATCH("/:id/requests/:userId", h.UpdateRequest, middleware.RequireToken())
}
