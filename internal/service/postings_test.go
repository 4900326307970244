package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/repository"
)

func validPosting() model.Posting {
	return model.Posting{
		ClubID:    "club",
		Category:  "U13",
		Format:    "11v11",
		MatchDate: "2026-06-01",
		MatchTime: "15:30",
		Venue:     "Domicile",
		Email:     "host@example.com",
		Phone:     "0600000000",
	}
}

func TestPostingsCreate(t *testing.T) {
	store := &fakePostings{}
	s := NewPostings(store)

	p, err := s.Create(context.Background(), "owner", validPosting())
	require.NoError(t, err)
	assert.Equal(t, "owner", p.OwnerID)
	assert.Equal(t, model.StatusActive, p.Status)
}

func TestPostingsCreate_Validation(t *testing.T) {
	mutate := map[string]func(*model.Posting){
		"missing club":  func(p *model.Posting) { p.ClubID = "" },
		"missing phone": func(p *model.Posting) { p.Phone = " " },
		"bad format":    func(p *model.Posting) { p.Format = "7v7" },
		"bad venue":     func(p *model.Posting) { p.Venue = "Moon" },
		"bad date":      func(p *model.Posting) { p.MatchDate = "2026-02-30" },
		"bad time":      func(p *model.Posting) { p.MatchTime = "25:00" },
		"bad type":      func(p *model.Posting) { p.Type = "friendly" },
	}
	for name, m := range mutate {
		t.Run(name, func(t *testing.T) {
			store := &fakePostings{}
			p := validPosting()
			m(&p)
			_, err := NewPostings(store).Create(context.Background(), "owner", p)
			assert.True(t, IsValidation(err), "got %v", err)
			assert.Empty(t, store.rows)
		})
	}
}

func TestPostingsUpdateAndDelete_Ownership(t *testing.T) {
	store := &fakePostings{rows: []model.Posting{{ID: "p1", OwnerID: "owner"}}}
	s := NewPostings(store)
	ctx := context.Background()
	status := model.StatusFound

	_, err := s.Update(ctx, "missing", "stranger", repository.PostingUpdate{Status: &status})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Update(ctx, "p1", "stranger", repository.PostingUpdate{Status: &status})
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = s.Update(ctx, "p1", "owner", repository.PostingUpdate{Status: &status})
	require.NoError(t, err)
	assert.Len(t, store.updated, 1)

	bad := "open"
	_, err = s.Update(ctx, "p1", "owner", repository.PostingUpdate{Status: &bad})
	assert.True(t, IsValidation(err))

	_, err = s.Update(ctx, "p1", "owner", repository.PostingUpdate{})
	require.NoError(t, err)
	assert.Len(t, store.updated, 1, "empty update does not write")

	assert.ErrorIs(t, s.Delete(ctx, "p1", "stranger"), repository.ErrForbidden)
	assert.ErrorIs(t, s.Delete(ctx, "missing", "owner"), repository.ErrNotFound)
	require.NoError(t, s.Delete(ctx, "p1", "owner"))
	assert.Equal(t, []string{"p1"}, store.deleted)
}
