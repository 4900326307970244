package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kdufoot/matchfinder/internal/middleware"
	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/permission"
	"github.com/kdufoot/matchfinder/internal/repository"
	"github.com/kdufoot/matchfinder/internal/service"
)

// MatchHandler exposes postings and their contact requests.  Every
// posting or contact leaves through the service visibility views.
// Create and Update spend their matches:create unit through Gate only
// once the body is valid.
type MatchHandler struct {
	Discovery *service.Discovery
	Postings  *service.Postings
	Lifecycle *service.Lifecycle
	Gate      middleware.Gate
}

// NewMatchHandler constructs a MatchHandler and panics if any dependency is nil.
func NewMatchHandler(d *service.Discovery, p *service.Postings, l *service.Lifecycle, g middleware.Gate) *MatchHandler {
	if d == nil || p == nil || l == nil || g == nil {
		panic("nil dependency passed to NewMatchHandler")
	}
	return &MatchHandler{Discovery: d, Postings: p, Lifecycle: l, Gate: g}
}

// List runs a discovery query built from the query string.
//
//	GET /v1/matches?category=U13&radius_km=20&user_lat=50.0&user_lng=2.0
//
// mine=true restricts the list to the caller's own postings.
func (h *MatchHandler) List(c echo.Context) error {
	q := service.Query{
		Type:      param(c, "type"),
		Category:  param(c, "category"),
		Level:     param(c, "level"),
		Format:    param(c, "format"),
		Venue:     param(c, "venue"),
		PitchType: param(c, "pitch_type"),
		Status:    param(c, "status"),
		Date:      param(c, "date"),
		From:      param(c, "from"),
		To:        param(c, "to"),
		City:      param(c, "location_city"),
		Zip:       param(c, "location_zip"),
		Notes:     param(c, "notes"),
	}
	if mine, _ := strconv.ParseBool(c.QueryParam("mine")); mine {
		q.OwnerID = middleware.UserID(c)
	}

	var err error
	if q.Limit, err = intParam(c, "limit"); err != nil {
		return badRequest(c, "limit", "expected an integer")
	}
	if q.Offset, err = intParam(c, "offset"); err != nil {
		return badRequest(c, "offset", "expected an integer")
	}
	for _, fp := range []struct {
		name string
		dst  **float64
	}{{"radius_km", &q.RadiusKm}, {"user_lat", &q.Lat}, {"user_lng", &q.Lng}} {
		v, err := floatParam(c, fp.name)
		if err != nil {
			return badRequest(c, fp.name, "expected a number")
		}
		*fp.dst = v
	}

	ctx := c.Request().Context()
	res, err := h.Discovery.Search(ctx, q)
	if err != nil {
		return fail(c, err)
	}
	viewer, err := h.viewer(c, res.Items)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"matches": service.ViewPostings(viewer, res.Items),
		"total":   res.Total,
		"limit":   res.Limit,
		"offset":  res.Offset,
	})
}

// Get returns one posting.
func (h *MatchHandler) Get(c echo.Context) error {
	p, err := h.Postings.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	items := []service.Listed{{Posting: p}}
	viewer, err := h.viewer(c, items)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"match": service.ViewPosting(viewer, items[0])})
}

type postingRequest struct {
	ClubID          string `json:"club_id"`
	Type            string `json:"type"`
	Category        string `json:"category"`
	Level           string `json:"level"`
	Format          string `json:"format"`
	MatchDate       string `json:"match_date"`
	MatchTime       string `json:"match_time"`
	Venue           string `json:"venue"`
	LocationAddress string `json:"location_address"`
	LocationCity    string `json:"location_city"`
	LocationZip     string `json:"location_zip"`
	PitchType       string `json:"pitch_type"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Notes           string `json:"notes"`
}

// Create publishes a new posting owned by the caller.  A valid body
// consumes one matches:create unit before the posting is stored.
func (h *MatchHandler) Create(c echo.Context) error {
	var req postingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid JSON body")
	}
	draft := model.Posting{
		ClubID:          strings.TrimSpace(req.ClubID),
		Type:            req.Type,
		Category:        strings.TrimSpace(req.Category),
		Level:           req.Level,
		Format:          req.Format,
		MatchDate:       req.MatchDate,
		MatchTime:       req.MatchTime,
		Venue:           req.Venue,
		LocationAddress: req.LocationAddress,
		LocationCity:    req.LocationCity,
		LocationZip:     req.LocationZip,
		PitchType:       req.PitchType,
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		Notes:           req.Notes,
	}
	if err := service.ValidatePosting(draft); err != nil {
		return fail(c, err)
	}
	if admitted, err := middleware.Consume(c, h.Gate, permission.MatchesCreate); !admitted {
		return err
	}
	p, err := h.Postings.Create(c.Request().Context(), middleware.UserID(c), draft)
	if err != nil {
		return fail(c, err)
	}
	viewer := service.Viewer{UserID: middleware.UserID(c)}
	return ok(c, http.StatusCreated, echo.Map{"match": service.ViewPosting(viewer, service.Listed{Posting: p})})
}

type updateRequest struct {
	Category        *string `json:"category"`
	Level           *string `json:"level"`
	Format          *string `json:"format"`
	MatchDate       *string `json:"match_date"`
	MatchTime       *string `json:"match_time"`
	Venue           *string `json:"venue"`
	LocationAddress *string `json:"location_address"`
	LocationCity    *string `json:"location_city"`
	LocationZip     *string `json:"location_zip"`
	PitchType       *string `json:"pitch_type"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Notes           *string `json:"notes"`
	Status          *string `json:"status"`
}

// Update changes fields of the caller's posting.  Absent fields are kept.
// The unit is spent before ownership is known, so a wrong-owner edit
// still costs one.
func (h *MatchHandler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid JSON body")
	}
	u := repository.PostingUpdate(req)
	if err := service.ValidateUpdate(u); err != nil {
		return fail(c, err)
	}
	if admitted, err := middleware.Consume(c, h.Gate, permission.MatchesCreate); !admitted {
		return err
	}
	uid := middleware.UserID(c)
	p, err := h.Postings.Update(c.Request().Context(), c.Param("id"), uid, u)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"match": service.ViewPosting(service.Viewer{UserID: uid}, service.Listed{Posting: p})})
}

// Delete removes the caller's posting.
func (h *MatchHandler) Delete(c echo.Context) error {
	if err := h.Postings.Delete(c.Request().Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, nil)
}

type contactRequest struct {
	Message string `json:"message"`
}

// Contact sends the caller's interest to the posting owner.  Repeating
// the call succeeds with created=false.
func (h *MatchHandler) Contact(c echo.Context) error {
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid JSON body")
	}
	created, err := h.Lifecycle.Contact(c.Request().Context(), c.Param("id"), middleware.UserID(c), strings.TrimSpace(req.Message))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"created": created})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateRequest lets the posting owner accept or refuse a contact.
//
//	PATCH /v1/matches/:id/requests/:userId {"status": "accepted"}
func (h *MatchHandler) UpdateRequest(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "", "invalid JSON body")
	}
	contact, err := h.Lifecycle.UpdateRequestStatus(c.Request().Context(),
		c.Param("id"), c.Param("userId"), middleware.UserID(c), req.Status)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"request": echo.Map{
		"match_id":     contact.PostingID,
		"requester_id": contact.RequesterID,
		"status":       contact.Status,
	}})
}

// Incoming lists the contacts received on the caller's postings.
func (h *MatchHandler) Incoming(c echo.Context) error {
	reqs, err := h.Lifecycle.IncomingRequests(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"requests": service.ViewRequests(reqs)})
}

// Participations lists the contacts the caller has sent.
func (h *MatchHandler) Participations(c echo.Context) error {
	parts, err := h.Lifecycle.Participations(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"participations": service.ViewParticipations(parts)})
}

func (h *MatchHandler) viewer(c echo.Context, items []service.Listed) (service.Viewer, error) {
	postings := make([]model.Posting, len(items))
	for i, l := range items {
		postings[i] = l.Posting
	}
	return h.Lifecycle.ViewerFor(c.Request().Context(), middleware.UserID(c), postings)
}

func param(c echo.Context, name string) string {
	return strings.TrimSpace(c.QueryParam(name))
}

func intParam(c echo.Context, name string) (int, error) {
	s := param(c, name)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func floatParam(c echo.Context, name string) (*float64, error) {
	s := param(c, name)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
