package domain

// UserProfile is the cached snapshot of the authenticated member, synced from
// the backend at session establishment and on explicit refresh. The backend
// stays authoritative for the coin balance; the local copy is display state.
//
// JSON tags follow the backend's user object field names.
type UserProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CreatedAt   int64  `json:"createdAt"`
	CoinBalance int64  `json:"coin"`
	TariffName  string `json:"userTariff"`
}

// Session pairs the bearer credential with the profile it was validated for.
// The invariant is all-or-nothing: a profile without a valid credential (or
// the reverse) never leaves the session store.
type Session struct {
	Credential string       `json:"credential"`
	Profile    *UserProfile `json:"profile"`
}

// Anonymous reports whether no one is logged in.
func (s *Session) Anonymous() bool {
	return s == nil || s.Credential == "" || s.Profile == nil
}
