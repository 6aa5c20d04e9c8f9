package model

import "time"

// Credential is the rotating OAuth2 credential for one realm.
type Credential struct {
	RealmID      string    `json:"realm_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Valid reports whether the access token can be used at now, allowing skew.
func (c *Credential) Valid(now time.Time, skew time.Duration) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	if c.Expiry.IsZero() {
		return true
	}
	return now.Add(skew).Before(c.Expiry)
}
