package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/repository"
)

// PostingStore is the full posting repository.
type PostingStore interface {
	PostingSearcher
	GetByID(ctx context.Context, id string) (model.Posting, error)
	Create(ctx context.Context, p model.Posting) (model.Posting, error)
	Update(ctx context.Context, id string, u repository.PostingUpdate) (model.Posting, error)
	Delete(ctx context.Context, id string) error
}

var matchTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Postings implements create/read/update/delete of postings with the
// owner-only mutation rule.
type Postings struct {
	store PostingStore
}

// NewPostings wraps a posting store.
func NewPostings(store PostingStore) *Postings { return &Postings{store: store} }

// Get returns the posting id or repository.ErrNotFound.
func (s *Postings) Get(ctx context.Context, id string) (model.Posting, error) {
	return s.store.GetByID(ctx, id)
}

// Create validates p and stores it as an active posting owned by ownerID.
func (s *Postings) Create(ctx context.Context, ownerID string, p model.Posting) (model.Posting, error) {
	if err := ValidatePosting(p); err != nil {
		return model.Posting{}, err
	}
	p.OwnerID = ownerID
	return s.store.Create(ctx, p)
}

// Update applies u to the posting id on behalf of actingUserID.  A missing
// posting is reported before ownership is checked.
func (s *Postings) Update(ctx context.Context, id, actingUserID string, u repository.PostingUpdate) (model.Posting, error) {
	if err := ValidateUpdate(u); err != nil {
		return model.Posting{}, err
	}
	existing, err := s.owned(ctx, id, actingUserID)
	if err != nil {
		return model.Posting{}, err
	}
	if u.Empty() {
		return existing, nil
	}
	return s.store.Update(ctx, id, u)
}

// Delete removes the posting id on behalf of actingUserID.
func (s *Postings) Delete(ctx context.Context, id, actingUserID string) error {
	if _, err := s.owned(ctx, id, actingUserID); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Postings) owned(ctx context.Context, id, userID string) (model.Posting, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Posting{}, err
	}
	if p.OwnerID != userID {
		return model.Posting{}, repository.ErrForbidden
	}
	return p, nil
}

// ValidatePosting reports the first problem with a new posting as a
// *ValidationError.  It touches no store.
func ValidatePosting(p model.Posting) error {
	required := []struct{ field, v string }{
		{"club_id", p.ClubID},
		{"category", p.Category},
		{"format", p.Format},
		{"match_date", p.MatchDate},
		{"match_time", p.MatchTime},
		{"venue", p.Venue},
		{"email", p.Email},
		{"phone", p.Phone},
	}
	for _, r := range required {
		if blank(r.v) {
			return invalid(r.field, "required")
		}
	}
	if p.Type != "" && !model.ValidPostingType(p.Type) {
		return invalid("type", "unknown type")
	}
	return errors.Join(
		checkFormat(&p.Format),
		checkVenue(&p.Venue),
		checkDate(&p.MatchDate),
		checkTime(&p.MatchTime),
	)
}

// ValidateUpdate is ValidatePosting for a partial update.
func ValidateUpdate(u repository.PostingUpdate) error {
	if u.Status != nil && !model.ValidPostingStatus(*u.Status) {
		return invalid("status", "unknown status")
	}
	for _, r := range []struct {
		field string
		v     *string
	}{{"category", u.Category}, {"email", u.Email}, {"phone", u.Phone}} {
		if r.v != nil && blank(*r.v) {
			return invalid(r.field, "must not be empty")
		}
	}
	return errors.Join(
		checkFormat(u.Format),
		checkVenue(u.Venue),
		checkDate(u.MatchDate),
		checkTime(u.MatchTime),
	)
}

// The check helpers treat nil as not provided.

func checkFormat(v *string) error {
	if v != nil && !model.Formats[*v] {
		return invalid("format", "unknown format")
	}
	return nil
}

func checkVenue(v *string) error {
	if v != nil && !model.Venues[*v] {
		return invalid("venue", "unknown venue")
	}
	return nil
}

func checkDate(v *string) error {
	if v == nil {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, *v); err != nil {
		return invalid("match_date", "expected YYYY-MM-DD")
	}
	return nil
}

func checkTime(v *string) error {
	if v != nil && !matchTime.MatchString(*v) {
		return invalid("match_time", "expected HH:MM")
	}
	return nil
}
