package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/metrics"
	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/queue"
	"github.com/kdufoot/matchfinder/internal/repository"
)

// PostingReader loads a single posting.
type PostingReader interface {
	GetByID(ctx context.Context, id string) (model.Posting, error)
}

// ContactStore persists contacts.
type ContactStore interface {
	Insert(ctx context.Context, postingID, requesterID, message string) (bool, error)
	Get(ctx context.Context, postingID, requesterID string) (model.Contact, error)
	UpdateStatus(ctx context.Context, postingID, requesterID, status string) error
	StatusesFor(ctx context.Context, userID string, postingIDs []string) (map[string]string, error)
	IncomingForOwner(ctx context.Context, ownerID string) ([]model.IncomingRequest, error)
	ParticipationsFor(ctx context.Context, userID string) ([]model.Participation, error)
}

// Retransition decides whether an answered contact may be answered again.
type Retransition string

const (
	// RetransitionAllow lets the owner flip an accepted contact to refused
	// and back.
	RetransitionAllow Retransition = "allow"
	// RetransitionReject treats an answered contact as no longer pending
	// and reports it as not found.
	RetransitionReject Retransition = "reject"
)

// ParseRetransition maps a config value to a policy, defaulting to allow.
func ParseRetransition(s string) Retransition {
	if Retransition(s) == RetransitionReject {
		return RetransitionReject
	}
	return RetransitionAllow
}

// MaxMessageLen bounds the free text sent with a contact.
const MaxMessageLen = 1000

// Lifecycle manages contact requests between clubs.
type Lifecycle struct {
	postings PostingReader
	contacts ContactStore
	events   queue.Publisher
	policy   Retransition
}

// NewLifecycle wires the manager.  A nil publisher drops events.
func NewLifecycle(postings PostingReader, contacts ContactStore, events queue.Publisher, policy Retransition) *Lifecycle {
	if events == nil {
		events = queue.NoopPublisher{}
	}
	if policy == "" {
		policy = RetransitionAllow
	}
	return &Lifecycle{postings: postings, contacts: contacts, events: events, policy: policy}
}

// Contact records requesterID's interest in postingID.  Contacting the
// same posting twice succeeds without creating a second contact; created
// reports whether this call stored one.
func (l *Lifecycle) Contact(ctx context.Context, postingID, requesterID, message string) (created bool, err error) {
	if len([]rune(message)) > MaxMessageLen {
		return false, invalid("message", "too long")
	}
	p, err := l.postings.GetByID(ctx, postingID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrPostingUnavailable
	}
	if err != nil {
		return false, err
	}
	if p.Status != model.StatusActive {
		return false, ErrPostingUnavailable
	}
	if p.OwnerID == requesterID {
		return false, invalid("match_id", "cannot contact your own posting")
	}

	created, err = l.contacts.Insert(ctx, postingID, requesterID, message)
	if err != nil {
		return false, err
	}
	if created {
		l.publish(ctx, queue.ContactCreated(postingID, p.OwnerID, requesterID, message))
	}
	return created, nil
}

// UpdateRequestStatus lets the owner of postingID answer requesterID's
// contact.  Checks run in this order: status value, posting exists,
// caller owns it, contact exists, re-transition policy.
func (l *Lifecycle) UpdateRequestStatus(ctx context.Context, postingID, requesterID, actingUserID, status string) (model.Contact, error) {
	if status != model.ContactAccepted && status != model.ContactRefused {
		return model.Contact{}, invalid("status", "must be accepted or refused")
	}
	p, err := l.postings.GetByID(ctx, postingID)
	if err != nil {
		return model.Contact{}, err
	}
	if p.OwnerID != actingUserID {
		return model.Contact{}, repository.ErrForbidden
	}
	c, err := l.contacts.Get(ctx, postingID, requesterID)
	if err != nil {
		return model.Contact{}, err
	}
	if model.IsTerminal(c.Status) && l.policy == RetransitionReject {
		return model.Contact{}, repository.ErrNotFound
	}
	if c.Status == status {
		return c, nil
	}

	if err := l.contacts.UpdateStatus(ctx, postingID, requesterID, status); err != nil {
		return model.Contact{}, err
	}
	previous := c.Status
	c.Status = status
	l.publish(ctx, queue.RequestStatusChanged(postingID, p.OwnerID, requesterID, previous, status))
	return c, nil
}

// IncomingRequests lists the contacts received on ownerID's postings.
func (l *Lifecycle) IncomingRequests(ctx context.Context, ownerID string) ([]model.IncomingRequest, error) {
	return l.contacts.IncomingForOwner(ctx, ownerID)
}

// Participations lists the contacts sent by requesterID.
func (l *Lifecycle) Participations(ctx context.Context, requesterID string) ([]model.Participation, error) {
	return l.contacts.ParticipationsFor(ctx, requesterID)
}

// ViewerFor builds the visibility context of userID over postings.  It
// looks up the caller's contacts only on postings they do not own.
func (l *Lifecycle) ViewerFor(ctx context.Context, userID string, postings []model.Posting) (Viewer, error) {
	v := Viewer{UserID: userID}
	ids := make([]string, 0, len(postings))
	for _, p := range postings {
		if p.OwnerID != userID {
			ids = append(ids, p.ID)
		}
	}
	if userID == "" || len(ids) == 0 {
		return v, nil
	}
	statuses, err := l.contacts.StatusesFor(ctx, userID, ids)
	if err != nil {
		return Viewer{}, err
	}
	v.Contacts = statuses
	return v, nil
}

func (l *Lifecycle) publish(ctx context.Context, ev queue.Event) {
	if err := l.events.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues(ev.Type, "error").Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", ev.Type).Str("posting_id", ev.PostingID).Msg("publish event failed")
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Type, "ok").Inc()
}
