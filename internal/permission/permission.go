// Package permission holds the permission strings granted by the identity
// provider and the gate combining the claim check with quota evaluation.
package permission

// Permission is a scope string carried in an access token.
type Permission string

const (
	ReadAPI  Permission = "read:api"
	WriteAPI Permission = "write:api"

	VideosAnalyze     Permission = "videos:analyze"
	VideosAnalyzeLong Permission = "videos:analyze:long"

	SessionsCreate Permission = "sessions:create"
	SessionsAdapt  Permission = "sessions:adapt"

	MatchesCreate  Permission = "matches:create"
	MatchesPremium Permission = "matches:premium"
	MatchesContact Permission = "matches:contact"

	AdminMatches Permission = "admin:matches"
)

// Claims are the two fields the core reads from a verified token.
type Claims struct {
	Subject     string
	Permissions []string
}

// Has reports whether the claims grant p.
func (c Claims) Has(p Permission) bool {
	for _, granted := range c.Permissions {
		if granted == string(p) {
			return true
		}
	}
	return false
}
