package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/kdufoot/matchfinder/internal/geo"
	"github.com/kdufoot/matchfinder/internal/model"
)

// PostingFilter defines the relational filters and pagination of a
// posting search.  Empty strings mean "no filter".  When Box is set the
// hosting club's coordinates must fall inside it, which also drops clubs
// without coordinates.
type PostingFilter struct {
	OwnerID   string
	Type      string
	Category  string
	Level     string
	Format    string
	Venue     string
	PitchType string
	Status    string
	Date      string // exact match_date
	From      string // match_date lower bound, inclusive
	To        string // match_date upper bound, inclusive
	City      string // case-insensitive substring on location_city
	Zip       string // prefix on location_zip or the club's zip
	Notes     string // substring on notes
	Box       *geo.Box
	Limit     int
	Offset    int
}

// postingColumns is shared by every query returning a model.Posting.
const postingColumns = `
	m.id, m.owner_id, m.club_id, m.type, m.category, COALESCE(m.level, ''), m.format,
	DATE_FORMAT(m.match_date, '%Y-%m-%d'), TIME_FORMAT(m.match_time, '%H:%i'),
	m.venue, COALESCE(m.location_address, ''), COALESCE(m.location_city, ''),
	COALESCE(m.location_zip, ''), COALESCE(m.pitch_type, ''),
	m.email, m.phone, COALESCE(m.notes, ''), m.status, m.created_at, m.updated_at,
	(SELECT COUNT(*) FROM match_contacts mc WHERE mc.match_id = m.id) AS contacts_count,
	COALESCE(c.name, ''), COALESCE(c.city, ''), COALESCE(c.zip, ''), COALESCE(c.logo_url, ''),
	c.latitude, c.longitude`

const postingFrom = `
	FROM matches m
	LEFT JOIN clubs c ON c.id = m.club_id`

// likeEscaper makes user input match literally inside a LIKE pattern,
// using MySQL's default backslash escape.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// buildPostingWhere turns a filter into a WHERE condition and its
// positional arguments.
func buildPostingWhere(f PostingFilter) (string, []any) {
	where := []string{}
	args := []any{}

	eq := func(col, v string) {
		if v != "" {
			where = append(where, col+" = ?")
			args = append(args, v)
		}
	}
	eq("m.owner_id", f.OwnerID)
	eq("m.type", f.Type)
	eq("m.status", f.Status)
	eq("m.category", f.Category)
	eq("m.level", f.Level)
	eq("m.format", f.Format)
	eq("m.venue", f.Venue)
	eq("m.pitch_type", f.PitchType)
	eq("m.match_date", f.Date)

	if f.From != "" {
		where = append(where, "m.match_date >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "m.match_date <= ?")
		args = append(args, f.To)
	}
	if f.City != "" {
		where = append(where, "LOWER(m.location_city) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(f.City))+"%")
	}
	if f.Zip != "" {
		where = append(where, "(m.location_zip LIKE ? OR c.zip LIKE ?)")
		zip := escapeLike(f.Zip) + "%"
		args = append(args, zip, zip)
	}
	if f.Notes != "" {
		where = append(where, "m.notes LIKE ?")
		args = append(args, "%"+escapeLike(f.Notes)+"%")
	}
	if f.Box != nil {
		where = append(where, "c.latitude BETWEEN ? AND ? AND c.longitude BETWEEN ? AND ?")
		args = append(args, f.Box.MinLat, f.Box.MaxLat, f.Box.MinLng, f.Box.MaxLng)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	return cond, args
}

// Search returns postings matching f ordered by date then time.  Limit
// defaults to 50 when not positive.
func (r *PostingRepo) Search(ctx context.Context, f PostingFilter) ([]model.Posting, error) {
	cond, args := buildPostingWhere(f)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + postingColumns + postingFrom + `
		WHERE ` + cond + `
		ORDER BY m.match_date ASC, m.match_time ASC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "search postings")
	}
	defer rows.Close()

	out := make([]model.Posting, 0, limit)
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan posting")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate postings")
	}
	return out, nil
}

// Count returns the number of postings matching f, ignoring pagination.
func (r *PostingRepo) Count(ctx context.Context, f PostingFilter) (int64, error) {
	cond, args := buildPostingWhere(f)
	var total int64
	q := `SELECT COUNT(*)` + postingFrom + `
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "count postings")
	}
	return total, nil
}
