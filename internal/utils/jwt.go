// Package utils provides helpers shared by the command line tools.
package utils

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT carrying the claims the
// API reads: sub, permissions and the equivalent space-delimited scope.
// It stands in for the identity provider in local environments.
func NewAccessToken(secret, subject string, permissions []string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":         subject,
		"permissions": permissions,
		"scope":       strings.Join(permissions, " "),
		"exp":         exp.Unix(),
		"iat":         now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
