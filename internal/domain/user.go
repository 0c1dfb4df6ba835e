package domain

// User is the record bound 1:1 to an authenticated identity.
type User struct {
	ID   UserID
	Name string
}
