package service

import (
	"time"

	"github.com/kdufoot/matchfinder/internal/model"
)

// Viewer is who a response is being rendered for: the caller's id and the
// status of the caller's contact on each relevant posting.
type Viewer struct {
	UserID   string
	Contacts map[string]string // posting id -> contact status
}

// canSeeOwnerContact reports whether the viewer may read the private
// contact fields of p.
func (v Viewer) canSeeOwnerContact(p model.Posting) bool {
	if v.UserID != "" && p.OwnerID == v.UserID {
		return true
	}
	return v.Contacts[p.ID] == model.ContactAccepted
}

// ClubView is the public part of a hosting club.
type ClubView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	City      string   `json:"city,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	LogoURL   string   `json:"logo_url,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// PostingView is the serialized form of a posting.  Email and Phone are
// empty unless the viewer may see them.
type PostingView struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"owner_id"`
	ClubID              string    `json:"club_id"`
	Club                *ClubView `json:"club,omitempty"`
	Type                string    `json:"type"`
	Category            string    `json:"category"`
	Level               string    `json:"level,omitempty"`
	Format              string    `json:"format"`
	MatchDate           string    `json:"match_date"`
	MatchTime           string    `json:"match_time"`
	Venue               string    `json:"venue"`
	LocationAddress     string    `json:"location_address,omitempty"`
	LocationCity        string    `json:"location_city,omitempty"`
	LocationZip         string    `json:"location_zip,omitempty"`
	PitchType           string    `json:"pitch_type,omitempty"`
	Email               string    `json:"email,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	Status              string    `json:"status"`
	ContactsCount       *int      `json:"contacts_count,omitempty"`
	MyContactStatus     string    `json:"my_contact_status,omitempty"`
	DistanceKm          *float64  `json:"distance_km,omitempty"`
	DistanceApproximate bool      `json:"distance_approximate,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ViewPosting renders l for v.  It is the only place postings become
// response bodies.
func ViewPosting(v Viewer, l Listed) PostingView {
	p := l.Posting
	out := PostingView{
		ID:                  p.ID,
		OwnerID:             p.OwnerID,
		ClubID:              p.ClubID,
		Type:                p.Type,
		Category:            p.Category,
		Level:               p.Level,
		Format:              p.Format,
		MatchDate:           p.MatchDate,
		MatchTime:           p.MatchTime,
		Venue:               p.Venue,
		LocationAddress:     p.LocationAddress,
		LocationCity:        p.LocationCity,
		LocationZip:         p.LocationZip,
		PitchType:           p.PitchType,
		Notes:               p.Notes,
		Status:              p.Status,
		MyContactStatus:     v.Contacts[p.ID],
		DistanceKm:          l.DistanceKm,
		DistanceApproximate: l.Approximate,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if p.Club != nil {
		out.Club = &ClubView{
			ID:        p.Club.ID,
			Name:      p.Club.Name,
			City:      p.Club.City,
			Zip:       p.Club.Zip,
			LogoURL:   p.Club.LogoURL,
			Latitude:  p.Club.Latitude,
			Longitude: p.Club.Longitude,
		}
	}
	if v.canSeeOwnerContact(p) {
		out.Email = p.Email
		out.Phone = p.Phone
	}
	if v.UserID != "" && p.OwnerID == v.UserID {
		n := p.ContactsCount
		out.ContactsCount = &n
	}
	return out
}

// ViewPostings renders a result list in order.
func ViewPostings(v Viewer, items []Listed) []PostingView {
	out := make([]PostingView, len(items))
	for i, l := range items {
		out[i] = ViewPosting(v, l)
	}
	return out
}

// RequestView is an incoming contact as the posting owner sees it.
type RequestView struct {
	PostingID         string    `json:"match_id"`
	PostingType       string    `json:"match_type"`
	Category          string    `json:"category"`
	MatchDate         string    `json:"match_date"`
	MatchTime         string    `json:"match_time"`
	RequesterID       string    `json:"requester_id"`
	RequesterClubName string    `json:"requester_club_name,omitempty"`
	RequesterClubLogo string    `json:"requester_club_logo,omitempty"`
	RequesterEmail    string    `json:"requester_email,omitempty"`
	RequesterPhone    string    `json:"requester_phone,omitempty"`
	Message           string    `json:"message,omitempty"`
	Status            string    `json:"status"`
	ContactedAt       time.Time `json:"contacted_at"`
}

// ViewRequests renders incoming contacts.  Requester email and phone are
// only kept on accepted contacts.
func ViewRequests(in []model.IncomingRequest) []RequestView {
	out := make([]RequestView, len(in))
	for i, r := range in {
		out[i] = RequestView{
			PostingID:         r.PostingID,
			PostingType:       r.PostingType,
			Category:          r.Category,
			MatchDate:         r.MatchDate,
			MatchTime:         r.MatchTime,
			RequesterID:       r.RequesterID,
			RequesterClubName: r.RequesterClubName,
			RequesterClubLogo: r.RequesterClubLogo,
			Message:           r.Message,
			Status:            r.Status,
			ContactedAt:       r.ContactedAt,
		}
		if r.Status == model.ContactAccepted {
			out[i].RequesterEmail = r.RequesterEmail
			out[i].RequesterPhone = r.RequesterPhone
		}
	}
	return out
}

// ParticipationView is a sent contact as the requester sees it.
type ParticipationView struct {
	PostingID    string    `json:"match_id"`
	PostingType  string    `json:"match_type"`
	Category     string    `json:"category"`
	MatchDate    string    `json:"match_date"`
	MatchTime    string    `json:"match_time"`
	HostClubName string    `json:"host_club_name,omitempty"`
	HostClubLogo string    `json:"host_club_logo,omitempty"`
	HostEmail    string    `json:"host_email,omitempty"`
	HostPhone    string    `json:"host_phone,omitempty"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status"`
	ContactedAt  time.Time `json:"contacted_at"`
}

// ViewParticipations renders sent contacts.  The host's email and phone
// are only kept once the host accepted.
func ViewParticipations(in []model.Participation) []ParticipationView {
	out := make([]ParticipationView, len(in))
	for i, p := range in {
		out[i] = ParticipationView{
			PostingID:    p.PostingID,
			PostingType:  p.PostingType,
			Category:     p.Category,
			MatchDate:    p.MatchDate,
			MatchTime:    p.MatchTime,
			HostClubName: p.HostClubName,
			HostClubLogo: p.HostClubLogo,
			Message:      p.Message,
			Status:       p.Status,
			ContactedAt:  p.ContactedAt,
		}
		if p.Status == model.ContactAccepted {
			out[i].HostEmail = p.HostEmail
			out[i].HostPhone = p.HostPhone
		}
	}
	return out
}
