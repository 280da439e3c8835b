package model

// SessionContext carries the caller identity and upstream credential for one quiz session.
type SessionContext struct {
	UserID         int
	OrganizationID int
	AuthToken      string
}
