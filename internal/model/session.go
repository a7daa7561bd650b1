package model

// Session is an authenticated user's credential and profile snapshot.
// A zero Token means signed out.
type Session struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// SignedIn reports whether the session carries a usable credential.
func (s *Session) SignedIn() bool {
	return s != nil && s.Token != ""
}
