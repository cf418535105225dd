package domain

// RosterEntry is one candidate identity eligible for face matching.
type RosterEntry struct {
	Identifier        string  `json:"identifier"`
	DisplayName       string  `json:"displayName"`
	RoleTag           RoleTag `json:"roleTag"`
	ReferenceImageURL string  `json:"referenceImageUrl"`
}

// Comparable reports whether the entry has a reference image to compare with.
func (r RosterEntry) Comparable() bool {
	return r.ReferenceImageURL != ""
}

// Profile converts the entry into the subject profile stored in an envelope.
func (r RosterEntry) Profile() SubjectProfile {
	return SubjectProfile{ID: r.Identifier, Name: r.DisplayName, PhotoURL: r.ReferenceImageURL}
}

// Comparison is the comparison service verdict for one probe/reference pair.
type Comparison struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// MatchResult is the outcome of a roster scan.
type MatchResult struct {
	Matched    bool         `json:"matched"`
	Confidence float64      `json:"confidence"`
	Candidate  *RosterEntry `json:"candidate,omitempty"`
}
