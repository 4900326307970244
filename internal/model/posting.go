package model

import "time"

// Posting is a match or tournament announcement published by a club
// owner.  It is stored in the `matches` table and joined with `clubs`
// for the hosting club's name and coordinates.
//
// Fields:
//
//	ID        – primary key (uuid string).
//	OwnerID   – user who created the posting; the only user allowed to mutate it.
//	ClubID    – hosting club.
//	Type      – TypeMatch or TypeTournament.
//	MatchDate – scheduled date, "YYYY-MM-DD".
//	MatchTime – scheduled time, "HH:MM".
//	Email     – owner's private contact email; only serialized under the visibility rules.
//	Phone     – owner's private contact phone; same rule as Email.
//	Status    – StatusActive, StatusFound or StatusExpired.
type Posting struct {
	ID              string    // matches.id
	OwnerID         string    // matches.owner_id
	ClubID          string    // matches.club_id
	Club            *Club     // joined hosting club (may be nil)
	Type            string    // matches.type
	Category        string    // matches.category
	Level           string    // matches.level (optional)
	Format          string    // matches.format
	MatchDate       string    // matches.match_date
	MatchTime       string    // matches.match_time
	Venue           string    // matches.venue
	LocationAddress string    // matches.location_address (optional)
	LocationCity    string    // matches.location_city (optional)
	LocationZip     string    // matches.location_zip (optional)
	PitchType       string    // matches.pitch_type (optional)
	Email           string    // matches.email
	Phone           string    // matches.phone
	Notes           string    // matches.notes (optional)
	Status          string    // matches.status
	ContactsCount   int       // number of contacts, filled for owner listings
	CreatedAt       time.Time // matches.created_at
	UpdatedAt       time.Time // matches.updated_at
}

// Club is the hosting club of a posting.  Latitude/Longitude are nil when
// the club has never been geocoded; such postings cannot take part in
// radius searches.
type Club struct {
	ID        string   // clubs.id
	Name      string   // clubs.name
	City      string   // clubs.city
	Zip       string   // clubs.zip
	LogoURL   string   // clubs.logo_url
	Latitude  *float64 // clubs.latitude (nullable)
	Longitude *float64 // clubs.longitude (nullable)
}

// HasCoordinates reports whether both coordinates of the club are known.
func (c *Club) HasCoordinates() bool {
	return c != nil && c.Latitude != nil && c.Longitude != nil
}

// Posting lifecycle statuses.
const (
	StatusActive  = "active"
	StatusFound   = "found"
	StatusExpired = "expired"
)

// Posting types.
const (
	TypeMatch      = "match"
	TypeTournament = "tournament"
)

// Formats accepted for a posting.
var Formats = map[string]bool{"11v11": true, "8v8": true, "5v5": true, "Futsal": true}

// Venues accepted for a posting.
var Venues = map[string]bool{"Domicile": true, "Extérieur": true, "Neutre": true}

// ValidPostingStatus reports whether s is one of the posting statuses.
func ValidPostingStatus(s string) bool {
	return s == StatusActive || s == StatusFound || s == StatusExpired
}

// ValidPostingType reports whether s is a known posting type.
func ValidPostingType(s string) bool {
	return s == TypeMatch || s == TypeTournament
}
