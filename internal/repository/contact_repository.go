package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/kdufoot/matchfinder/internal/model"
)

// mysqlDuplicateEntry is the server error number for a primary/unique key
// violation.
const mysqlDuplicateEntry = 1062

// ContactRepo persists contact requests in match_contacts.  The table's
// primary key is (match_id, user_id); rows are never deleted.
type ContactRepo struct {
	db *sql.DB
}

// NewContactRepo constructs a ContactRepo given a DB handle.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Insert stores a pending contact.  A second insert for the same
// (posting, requester) pair is not an error: created is false and the
// existing row is left as it was.
func (r *ContactRepo) Insert(ctx context.Context, postingID, requesterID, message string) (created bool, err error) {
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO match_contacts (match_id, user_id, message, status, contacted_at) VALUES (?, ?, ?, ?, ?)",
		postingID, requesterID, message, model.ContactPending, time.Now().UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return false, nil
		}
		return false, errors.Wrap(err, "insert contact")
	}
	return true, nil
}

// Get returns the contact of requesterID on postingID or ErrNotFound.
func (r *ContactRepo) Get(ctx context.Context, postingID, requesterID string) (model.Contact, error) {
	var c model.Contact
	err := r.db.QueryRowContext(ctx,
		"SELECT match_id, user_id, COALESCE(message, ''), status, contacted_at FROM match_contacts WHERE match_id = ? AND user_id = ? LIMIT 1",
		postingID, requesterID).Scan(&c.PostingID, &c.RequesterID, &c.Message, &c.Status, &c.ContactedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, errors.Wrap(err, "get contact")
	}
	return c, nil
}

// UpdateStatus sets the status of an existing contact.  No precondition
// on the previous status is stored; policy lives in the service layer.
func (r *ContactRepo) UpdateStatus(ctx context.Context, postingID, requesterID, status string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE match_contacts SET status = ? WHERE match_id = ? AND user_id = ?",
		status, postingID, requesterID)
	if err != nil {
		return errors.Wrap(err, "update contact status")
	}
	return nil
}

// StatusesFor returns the caller's contact status on each of postingIDs
// that the caller has contacted.
func (r *ContactRepo) StatusesFor(ctx context.Context, userID string, postingIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(postingIDs))
	if len(postingIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(postingIDs)), ",")
	args := make([]any, 0, len(postingIDs)+1)
	args = append(args, userID)
	for _, id := range postingIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT match_id, status FROM match_contacts WHERE user_id = ? AND match_id IN ("+placeholders+")",
		args...)
	if err != nil {
		return nil, errors.Wrap(err, "contact statuses")
	}
	defer rows.Close()
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, errors.Wrap(err, "scan contact status")
		}
		out[id] = status
	}
	return out, errors.Wrap(rows.Err(), "iterate contact statuses")
}

// IncomingForOwner lists the contacts received on ownerID's postings,
// newest first, joined with the requester's profile and club.
func (r *ContactRepo) IncomingForOwner(ctx context.Context, ownerID string) ([]model.IncomingRequest, error) {
	const q = `SELECT
			m.id, m.type, m.category, DATE_FORMAT(m.match_date, '%Y-%m-%d'), TIME_FORMAT(m.match_time, '%H:%i'),
			mc.user_id, COALESCE(rc.name, ''), COALESCE(rc.logo_url, ''),
			COALESCE(u.email, ''), COALESCE(u.phone, ''),
			COALESCE(mc.message, ''), mc.status, mc.contacted_at
		FROM match_contacts mc
		JOIN matches m     ON m.id = mc.match_id
		LEFT JOIN users u  ON u.id = mc.user_id
		LEFT JOIN clubs rc ON rc.id = u.club_id
		WHERE m.owner_id = ?
		ORDER BY mc.contacted_at DESC`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "incoming requests")
	}
	defer rows.Close()

	out := []model.IncomingRequest{}
	for rows.Next() {
		var ir model.IncomingRequest
		if err := rows.Scan(
			&ir.PostingID, &ir.PostingType, &ir.Category, &ir.MatchDate, &ir.MatchTime,
			&ir.RequesterID, &ir.RequesterClubName, &ir.RequesterClubLogo,
			&ir.RequesterEmail, &ir.RequesterPhone,
			&ir.Message, &ir.Status, &ir.ContactedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan incoming request")
		}
		out = append(out, ir)
	}
	return out, errors.Wrap(rows.Err(), "iterate incoming requests")
}

// ParticipationsFor lists the contacts sent by userID, newest first,
// joined with the posting and its hosting club.
func (r *ContactRepo) ParticipationsFor(ctx context.Context, userID string) ([]model.Participation, error) {
	const q = `SELECT
			m.id, m.type, m.category, DATE_FORMAT(m.match_date, '%Y-%m-%d'), TIME_FORMAT(m.match_time, '%H:%i'),
			COALESCE(c.name, ''), COALESCE(c.logo_url, ''),
			m.email, m.phone,
			COALESCE(mc.message, ''), mc.status, mc.contacted_at
		FROM match_contacts mc
		JOIN matches m    ON m.id = mc.match_id
		LEFT JOIN clubs c ON c.id = m.club_id
		WHERE mc.user_id = ?
		ORDER BY mc.contacted_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, errors.Wrap(err, "participations")
	}
	defer rows.Close()

	out := []model.Participation{}
	for rows.Next() {
		var p model.Participation
		if err := rows.Scan(
			&p.PostingID, &p.PostingType, &p.Category, &p.MatchDate, &p.MatchTime,
			&p.HostClubName, &p.HostClubLogo,
			&p.HostEmail, &p.HostPhone,
			&p.Message, &p.Status, &p.ContactedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan participation")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate participations")
}
