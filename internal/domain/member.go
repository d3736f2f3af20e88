package domain

import "time"

// Member is one family health record.
type Member struct {
	ID MemberID

	Name   string
	Age    string
	Blood  string
	Height string // centimeters, as entered
	Weight string // kilograms, as entered
	Notes  string

	// BMI is derived from Height and Weight on every save; nil means the inputs
	// were not valid positive numbers.
	BMI *float64
	// Report is an optional attached document; nil means none.
	Report *DataURI

	CreatedAt time.Time
	// UpdatedAt is nil until the member is first updated.
	UpdatedAt *time.Time
}

// Clone returns a deep copy of m.
func (m Member) Clone() Member {
	out := m
	if m.BMI != nil {
		v := *m.BMI
		out.BMI = &v
	}
	if m.Report != nil {
		v := *m.Report
		out.Report = &v
	}
	if m.UpdatedAt != nil {
		v := *m.UpdatedAt
		out.UpdatedAt = &v
	}
	return out
}
