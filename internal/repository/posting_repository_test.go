package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdufoot/matchfinder/internal/geo"
)

var postingRowColumns = []string{
	"id", "owner_id", "club_id", "type", "category", "level", "format",
	"match_date", "match_time",
	"venue", "location_address", "location_city", "location_zip", "pitch_type",
	"email", "phone", "notes", "status", "created_at", "updated_at",
	"contacts_count",
	"club_name", "club_city", "club_zip", "club_logo",
	"latitude", "longitude",
}

func postingRow(rows *sqlmock.Rows, id string, lat, lng any) *sqlmock.Rows {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(
		id, "owner-1", "club-1", "match", "U13", "", "11v11",
		"2026-06-01", "15:00",
		"home", "", "Lyon", "69001", "",
		"host@example.com", "0600000000", "", "active", now, now,
		2,
		"FC Lyon", "Lyon", "69001", "",
		lat, lng,
	)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestBuildPostingWhere_Empty(t *testing.T) {
	cond, args := buildPostingWhere(PostingFilter{})
	assert.Equal(t, "1=1", cond)
	assert.Empty(t, args)
}

func TestBuildPostingWhere_AllFilters(t *testing.T) {
	cond, args := buildPostingWhere(PostingFilter{
		OwnerID:  "u1",
		Status:   "active",
		Category: "U13",
		From:     "2026-06-01",
		To:       "2026-06-30",
		City:     "LYon",
		Zip:      "69",
		Notes:    "grass",
		Box:      &geo.Box{MinLat: 45, MaxLat: 46, MinLng: 4, MaxLng: 5},
	})

	assert.Equal(t,
		"m.owner_id = ? AND m.status = ? AND m.category = ? AND m.match_date >= ? AND m.match_date <= ? "+
			"AND LOWER(m.location_city) LIKE ? AND (m.location_zip LIKE ? OR c.zip LIKE ?) AND m.notes LIKE ? "+
			"AND c.latitude BETWEEN ? AND ? AND c.longitude BETWEEN ? AND ?",
		cond)
	assert.Equal(t, []any{
		"u1", "active", "U13", "2026-06-01", "2026-06-30",
		"%lyon%", "69%", "69%", "%grass%",
		45.0, 46.0, 4.0, 5.0,
	}, args)
}

func TestBuildPostingWhere_EscapesWildcards(t *testing.T) {
	_, args := buildPostingWhere(PostingFilter{City: "_", Zip: "6%", Notes: `50\50`})
	assert.Equal(t, []any{`%\_%`, `6\%%`, `6\%%`, `%50\\50%`}, args)
}

func TestPostingSearch_DefaultsAndScan(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	rows := sqlmock.NewRows(postingRowColumns)
	postingRow(rows, "p1", 45.76, 4.83)
	postingRow(rows, "p2", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY m.match_date ASC, m.match_time ASC")).
		WithArgs("active", 50, 0).
		WillReturnRows(rows)

	got, err := repo.Search(context.Background(), PostingFilter{Status: "active", Offset: -3})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, 2, got[0].ContactsCount)
	require.True(t, got[0].Club.HasCoordinates())
	assert.InDelta(t, 45.76, *got[0].Club.Latitude, 1e-9)
	assert.Equal(t, "FC Lyon", got[0].Club.Name)
	assert.False(t, got[1].Club.HasCoordinates())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostingCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("tournament").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background(), PostingFilter{Type: "tournament", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostingGetByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(postingRowColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostingUpdate_BuildsSetClause(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	status := "found"
	notes := "bring bibs"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE matches SET notes = ?, status = ?, updated_at = ? WHERE id = ?")).
		WithArgs(notes, status, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(postingRowColumns)
	postingRow(rows, "p1", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = ?")).WithArgs("p1").WillReturnRows(rows)

	p, err := repo.Update(context.Background(), "p1", PostingUpdate{Status: &status, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostingUpdate_EmptyOnlyReads(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	rows := sqlmock.NewRows(postingRowColumns)
	postingRow(rows, "p1", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = ?")).WithArgs("p1").WillReturnRows(rows)

	assert.True(t, PostingUpdate{}.Empty())
	_, err := repo.Update(context.Background(), "p1", PostingUpdate{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostingCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(postingRowColumns)
	postingRow(rows, "generated", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.id = ?")).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)

	_, err := repo.Create(context.Background(), postingFixtureInput())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostingDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPostingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM matches WHERE id = ?")).
		WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM matches WHERE id = ?")).
		WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "p1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
