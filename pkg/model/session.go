package model

// SessionState is the authentication state of the client session.
type SessionState string

const (
	SessionAnonymous      SessionState = "anonymous"
	SessionAuthenticating SessionState = "authenticating"
	SessionAuthenticated  SessionState = "authenticated"
)

// Session is a point-in-time view of the client session.
// There is no stored admin flag: IsAdmin derives it from the user's role.
type Session struct {
	Token string       `json:"-" yaml:"-"`
	User  *User        `json:"user,omitempty" yaml:"user,omitempty"`
	State SessionState `json:"state" yaml:"state"`
}

// IsAdmin reports whether the session belongs to an admin user.
func (s Session) IsAdmin() bool {
	return s.User.IsAdmin()
}

// IsAuthenticated reports whether a validated user is attached.
func (s Session) IsAuthenticated() bool {
	return s.State == SessionAuthenticated && s.User != nil
}
