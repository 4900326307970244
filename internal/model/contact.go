package model

import "time"

// Contact is a request by one club to play a posting.  A contact is
// identified by (PostingID, RequesterID); the match_contacts table carries
// a primary key on that pair so a second insert is rejected by the
// store.  Contacts are never deleted.
type Contact struct {
	PostingID   string    // match_contacts.match_id
	RequesterID string    // match_contacts.user_id
	Message     string    // match_contacts.message
	Status      string    // match_contacts.status
	ContactedAt time.Time // match_contacts.contacted_at
}

// Contact statuses.  Pending is the initial state, the other two are
// terminal.
const (
	ContactPending  = "pending"
	ContactAccepted = "accepted"
	ContactRefused  = "refused"
)

// IsTerminal reports whether a contact in status s has been answered.
func IsTerminal(s string) bool {
	return s == ContactAccepted || s == ContactRefused
}

// IncomingRequest is a contact on one of the owner's postings, joined with
// the posting and the requester's profile.
type IncomingRequest struct {
	PostingID         string
	PostingType       string
	Category          string
	MatchDate         string
	MatchTime         string
	RequesterID       string
	RequesterClubName string
	RequesterClubLogo string
	RequesterEmail    string // private; visible to the owner only once accepted
	RequesterPhone    string // private; visible to the owner only once accepted
	Message           string
	Status            string
	ContactedAt       time.Time
}

// Participation is a contact sent by the caller, joined with the posting
// and its hosting club.
type Participation struct {
	PostingID    string
	PostingType  string
	Category     string
	MatchDate    string
	MatchTime    string
	HostClubName string
	HostClubLogo string
	HostEmail    string // private; visible to the requester only once accepted
	HostPhone    string // private; visible to the requester only once accepted
	Message      string
	Status       string
	ContactedAt  time.Time
}
