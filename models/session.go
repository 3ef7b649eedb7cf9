package models

// Session identifies the caller on whose behalf gateways act. The zero value
// is the system session used by background jobs.
type Session struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatarUrl,omitempty"`
}

// IsSystem reports whether the session carries no user.
func (s Session) IsSystem() bool {
	return s.UserID == ""
}
