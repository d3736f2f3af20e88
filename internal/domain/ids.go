package domain

// MemberID is an internal identifier for a member record.
type MemberID string
