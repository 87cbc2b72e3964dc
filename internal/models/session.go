package models

import "time"

// LoginChallenge identifies which input the login flow presents after the
// username step: the platform either interposes an email-confirmation card
// or goes straight to the password field.
type LoginChallenge string

const (
	ChallengeEmail    LoginChallenge = "email"
	ChallengePassword LoginChallenge = "password"
)

// Cookie is a single browser cookie captured from an authenticated context.
// Name+Domain is the identity key; the capture order is preserved so the
// cookie jar can be replayed exactly.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds, 0 = session cookie
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// LocalStorageEntry is one key/value pair of an origin's localStorage.
type LocalStorageEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OriginStorage holds the localStorage entries for one origin.
type OriginStorage struct {
	Origin       string              `json:"origin"`
	LocalStorage []LocalStorageEntry `json:"localStorage"`
}

// Session is the serialized authenticated browsing state: cookies plus
// per-origin localStorage, sufficient to replay a logged-in context.
//
// A session carries no expiry of its own - validity is only ever determined
// empirically by probing the platform (see session.Validator). The session
// manager owns the single persisted instance; everything else treats
// sessions as read-only values.
type Session struct {
	Cookies    []Cookie        `json:"cookies"`
	Origins    []OriginStorage `json:"origins"`
	CapturedAt time.Time       `json:"captured_at"`
}

// CookieValue returns the value of the first cookie with the given name,
// or "" when absent.
func (s *Session) CookieValue(name string) string {
	for _, c := range s.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
