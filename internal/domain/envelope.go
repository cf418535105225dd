package domain

// SubjectProfile is the role-specific identity record stored beside a token.
type SubjectProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// Envelope is the persisted credential record for one role.
type Envelope struct {
	Token           string          `json:"token"`
	SubjectProfile  *SubjectProfile `json:"subjectProfile,omitempty"`
	IsAuthenticated bool            `json:"isAuthenticated"`
}

// Usable reports whether the resolver may consider the envelope at all.
func (e *Envelope) Usable() bool {
	return e != nil && e.Token != "" && e.IsAuthenticated
}

// WithToken returns a copy of the envelope carrying token. Profile and flag
// are preserved so the store can replace the whole record in one write.
func (e Envelope) WithToken(token string) Envelope {
	e.Token = token
	if e.SubjectProfile != nil {
		profile := *e.SubjectProfile
		e.SubjectProfile = &profile
	}
	return e
}
