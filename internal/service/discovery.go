// Package service holds the match discovery engine, the contact request
// lifecycle and the visibility rules applied to everything they return.
package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/geo"
	"github.com/kdufoot/matchfinder/internal/metrics"
	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/repository"
)

// PostingSearcher is the read side of the posting store used by discovery.
type PostingSearcher interface {
	Search(ctx context.Context, f repository.PostingFilter) ([]model.Posting, error)
	Count(ctx context.Context, f repository.PostingFilter) (int64, error)
}

// DistanceResolver returns routed distances in meters keyed by
// destination index.  Missing indexes are unresolved.
type DistanceResolver interface {
	Resolve(ctx context.Context, origin geo.Point, destinations []geo.Point) map[int]float64
}

// DiscoveryConfig tunes the engine.  Zero fields take the defaults
// below.
type DiscoveryConfig struct {
	// BoxFactor widens the straight-line bounding box to account for road
	// distances being longer than great-circle ones.
	BoxFactor float64
	// CandidateCap bounds how many rows a radius search fetches before
	// distance resolution.  Matches beyond the cap inside the box are
	// not considered.
	CandidateCap int
	MaxRadiusKm  float64
	DefaultLimit int
	MaxLimit     int
}

const (
	DefaultBoxFactor    = 1.4
	DefaultCandidateCap = 100
	DefaultMaxRadiusKm  = 200
	DefaultLimit        = 50
	MaxLimit            = 100
)

func (c DiscoveryConfig) withDefaults() DiscoveryConfig {
	if c.BoxFactor <= 0 {
		c.BoxFactor = DefaultBoxFactor
	}
	if c.CandidateCap <= 0 {
		c.CandidateCap = DefaultCandidateCap
	}
	if c.MaxRadiusKm <= 0 {
		c.MaxRadiusKm = DefaultMaxRadiusKm
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = MaxLimit
	}
	return c
}

// Query is a discovery request.  String filters are optional.  RadiusKm,
// Lat and Lng go together: a radius requires both coordinates.
type Query struct {
	OwnerID   string
	Type      string
	Category  string
	Level     string
	Format    string
	Venue     string
	PitchType string
	Status    string
	Date      string
	From      string
	To        string
	City      string
	Zip       string
	Notes     string

	RadiusKm *float64
	Lat      *float64
	Lng      *float64

	Limit  int
	Offset int
}

// Listed is a posting in a discovery result.  DistanceKm is set only in
// radius mode; Approximate marks a straight-line fallback distance.
type Listed struct {
	Posting     model.Posting
	DistanceKm  *float64
	Approximate bool
}

// DiscoveryResult is one page of postings.  In radius mode Total is the
// number of admitted postings and pagination does not apply.
type DiscoveryResult struct {
	Items  []Listed
	Total  int64
	Limit  int
	Offset int
	Radius bool
}

// Discovery is the match discovery engine.
type Discovery struct {
	store    PostingSearcher
	resolver DistanceResolver
	cfg      DiscoveryConfig
}

// NewDiscovery wires the engine.  resolver may be nil, in which case every
// distance is a straight-line fallback.
func NewDiscovery(store PostingSearcher, resolver DistanceResolver, cfg DiscoveryConfig) *Discovery {
	return &Discovery{store: store, resolver: resolver, cfg: cfg.withDefaults()}
}

// Search validates q and runs it.
func (d *Discovery) Search(ctx context.Context, q Query) (DiscoveryResult, error) {
	origin, radius, err := d.validate(q)
	if err != nil {
		return DiscoveryResult{}, err
	}
	f := repository.PostingFilter{
		OwnerID:   q.OwnerID,
		Type:      q.Type,
		Category:  q.Category,
		Level:     q.Level,
		Format:    q.Format,
		Venue:     q.Venue,
		PitchType: q.PitchType,
		Status:    q.Status,
		Date:      q.Date,
		From:      q.From,
		To:        q.To,
		City:      q.City,
		Zip:       q.Zip,
		Notes:     q.Notes,
	}
	if radius > 0 {
		return d.searchRadius(ctx, f, origin, radius)
	}
	return d.searchPage(ctx, f, q.Limit, q.Offset)
}

func (d *Discovery) validate(q Query) (geo.Point, float64, error) {
	if (q.Lat == nil) != (q.Lng == nil) {
		return geo.Point{}, 0, invalid("user_lat", "user_lat and user_lng must be given together")
	}
	var origin geo.Point
	if q.Lat != nil {
		origin = geo.Point{Lat: *q.Lat, Lng: *q.Lng}
		if !origin.Valid() {
			return geo.Point{}, 0, invalid("user_lat", "coordinates out of range")
		}
	}
	var radius float64
	if q.RadiusKm != nil {
		if q.Lat == nil {
			return geo.Point{}, 0, invalid("radius_km", "radius requires user_lat and user_lng")
		}
		radius = *q.RadiusKm
		if math.IsNaN(radius) || radius <= 0 || radius > d.cfg.MaxRadiusKm {
			return geo.Point{}, 0, invalid("radius_km", "radius must be in (0, max]")
		}
	}
	for _, dv := range []struct{ field, v string }{{"date", q.Date}, {"from", q.From}, {"to", q.To}} {
		if dv.v == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, dv.v); err != nil {
			return geo.Point{}, 0, invalid(dv.field, "expected YYYY-MM-DD")
		}
	}
	if q.From != "" && q.To != "" && q.From > q.To {
		return geo.Point{}, 0, invalid("from", "from is after to")
	}
	if q.Status != "" && !model.ValidPostingStatus(q.Status) {
		return geo.Point{}, 0, invalid("status", "unknown status")
	}
	if q.Type != "" && !model.ValidPostingType(q.Type) {
		return geo.Point{}, 0, invalid("type", "unknown type")
	}
	if q.Offset < 0 {
		return geo.Point{}, 0, invalid("offset", "must not be negative")
	}
	if q.Limit < 0 {
		return geo.Point{}, 0, invalid("limit", "must not be negative")
	}
	return origin, radius, nil
}

func (d *Discovery) searchPage(ctx context.Context, f repository.PostingFilter, limit, offset int) (DiscoveryResult, error) {
	if limit == 0 {
		limit = d.cfg.DefaultLimit
	}
	if limit > d.cfg.MaxLimit {
		limit = d.cfg.MaxLimit
	}
	f.Limit, f.Offset = limit, offset

	rows, err := d.store.Search(ctx, f)
	if err != nil {
		return DiscoveryResult{}, err
	}
	total, err := d.store.Count(ctx, f)
	if err != nil {
		return DiscoveryResult{}, err
	}
	items := make([]Listed, len(rows))
	for i, p := range rows {
		items[i] = Listed{Posting: p}
	}
	return DiscoveryResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (d *Discovery) searchRadius(ctx context.Context, f repository.PostingFilter, origin geo.Point, radiusKm float64) (DiscoveryResult, error) {
	box := geo.BoundingBox(origin, radiusKm, d.cfg.BoxFactor)
	f.Box = &box
	f.Limit, f.Offset = d.cfg.CandidateCap, 0

	rows, err := d.store.Search(ctx, f)
	if err != nil {
		return DiscoveryResult{}, err
	}

	candidates := make([]model.Posting, 0, len(rows))
	dests := make([]geo.Point, 0, len(rows))
	for _, p := range rows {
		if !p.Club.HasCoordinates() {
			continue
		}
		candidates = append(candidates, p)
		dests = append(dests, geo.Point{Lat: *p.Club.Latitude, Lng: *p.Club.Longitude})
	}

	var routed map[int]float64
	if d.resolver != nil && len(dests) > 0 {
		routed = d.resolver.Resolve(ctx, origin, dests)
	}

	items := make([]Listed, 0, len(candidates))
	var nRouted, nApprox int
	for i, p := range candidates {
		var km float64
		approx := false
		if meters, ok := routed[i]; ok {
			if meters > radiusKm*1000 {
				continue
			}
			km = meters / 1000
			nRouted++
		} else {
			km = geo.HaversineKm(origin, dests[i])
			if km > radiusKm {
				continue
			}
			approx = true
			nApprox++
		}
		dist := geo.Round1(km)
		items = append(items, Listed{Posting: p, DistanceKm: &dist, Approximate: approx})
	}
	// Rows arrive in date order, so a stable sort keeps it among ties.
	sort.SliceStable(items, func(a, b int) bool { return *items[a].DistanceKm < *items[b].DistanceKm })

	metrics.DiscoveryAdmissions.WithLabelValues("routed").Add(float64(nRouted))
	metrics.DiscoveryAdmissions.WithLabelValues("approximate").Add(float64(nApprox))
	zerolog.Ctx(ctx).Debug().
		Int("candidates", len(rows)).
		Int("with_coordinates", len(candidates)).
		Int("routed", nRouted).
		Int("approximate", nApprox).
		Float64("radius_km", radiusKm).
		Msg("radius discovery")

	return DiscoveryResult{Items: items, Total: int64(len(items)), Limit: len(items), Radius: true}, nil
}
