// Package repository contains data access logic for postings and their
// contact requests.  Postings live in the `matches` table, joined with
// `clubs` for the hosting club.  Private contact fields (email, phone)
// are always loaded; stripping them is the job of the serializer.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kdufoot/matchfinder/internal/model"
)

// PostingRepo manages persistence for postings.
type PostingRepo struct {
	db *sql.DB
}

// NewPostingRepo constructs a PostingRepo given a DB handle.
func NewPostingRepo(db *sql.DB) *PostingRepo { return &PostingRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *PostingRepo) DB() *sql.DB { return r.db }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosting(s rowScanner) (model.Posting, error) {
	var (
		p        model.Posting
		club     model.Club
		lat, lng sql.NullFloat64
	)
	err := s.Scan(
		&p.ID, &p.OwnerID, &p.ClubID, &p.Type, &p.Category, &p.Level, &p.Format,
		&p.MatchDate, &p.MatchTime,
		&p.Venue, &p.LocationAddress, &p.LocationCity,
		&p.LocationZip, &p.PitchType,
		&p.Email, &p.Phone, &p.Notes, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		&p.ContactsCount,
		&club.Name, &club.City, &club.Zip, &club.LogoURL,
		&lat, &lng,
	)
	if err != nil {
		return model.Posting{}, err
	}
	club.ID = p.ClubID
	if lat.Valid && lng.Valid {
		club.Latitude = &lat.Float64
		club.Longitude = &lng.Float64
	}
	p.Club = &club
	return p, nil
}

// GetByID fetches a posting.  It returns ErrNotFound when no row exists.
func (r *PostingRepo) GetByID(ctx context.Context, id string) (model.Posting, error) {
	q := `SELECT ` + postingColumns + postingFrom + ` WHERE m.id = ? LIMIT 1`
	p, err := scanPosting(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Posting{}, ErrNotFound
	}
	if err != nil {
		return model.Posting{}, errors.Wrapf(err, "get posting %s", id)
	}
	return p, nil
}

// Create inserts p as an active posting owned by p.OwnerID and returns
// the stored row.  ID and timestamps are generated here.
func (r *PostingRepo) Create(ctx context.Context, p model.Posting) (model.Posting, error) {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	if p.Type == "" {
		p.Type = model.TypeMatch
	}
	const q = `INSERT INTO matches (
		id, owner_id, club_id, type, category, level, format, match_date, match_time,
		venue, location_address, location_city, location_zip, pitch_type,
		email, phone, notes, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.OwnerID, p.ClubID, p.Type, p.Category, nullable(p.Level), p.Format, p.MatchDate, p.MatchTime,
		p.Venue, nullable(p.LocationAddress), nullable(p.LocationCity), nullable(p.LocationZip), nullable(p.PitchType),
		p.Email, p.Phone, nullable(p.Notes), model.StatusActive, now, now,
	)
	if err != nil {
		return model.Posting{}, errors.Wrap(err, "insert posting")
	}
	return r.GetByID(ctx, p.ID)
}

// PostingUpdate lists the mutable columns of a posting.  Nil fields are
// left untouched.
type PostingUpdate struct {
	Category        *string
	Level           *string
	Format          *string
	MatchDate       *string
	MatchTime       *string
	Venue           *string
	LocationAddress *string
	LocationCity    *string
	LocationZip     *string
	PitchType       *string
	Email           *string
	Phone           *string
	Notes           *string
	Status          *string
}

// Empty reports whether the update sets nothing.
func (u PostingUpdate) Empty() bool {
	return len(u.assignments()) == 0
}

type assignment struct {
	col string
	val any
}

func (u PostingUpdate) assignments() []assignment {
	var out []assignment
	add := func(col string, v *string) {
		if v != nil {
			out = append(out, assignment{col, *v})
		}
	}
	add("category", u.Category)
	add("level", u.Level)
	add("format", u.Format)
	add("match_date", u.MatchDate)
	add("match_time", u.MatchTime)
	add("venue", u.Venue)
	add("location_address", u.LocationAddress)
	add("location_city", u.LocationCity)
	add("location_zip", u.LocationZip)
	add("pitch_type", u.PitchType)
	add("email", u.Email)
	add("phone", u.Phone)
	add("notes", u.Notes)
	add("status", u.Status)
	return out
}

// Update applies u to the posting id and returns the stored row.  Owner
// checks are the caller's responsibility.
func (r *PostingRepo) Update(ctx context.Context, id string, u PostingUpdate) (model.Posting, error) {
	set := u.assignments()
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}
	q := "UPDATE matches SET "
	args := make([]any, 0, len(set)+2)
	for _, a := range set {
		q += a.col + " = ?, "
		args = append(args, a.val)
	}
	q += "updated_at = ? WHERE id = ?"
	args = append(args, time.Now().UTC(), id)

	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return model.Posting{}, errors.Wrapf(err, "update posting %s", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes the posting id.  It returns ErrNotFound when nothing was deleted.
func (r *PostingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "delete posting %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete posting rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
