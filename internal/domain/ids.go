package domain

// SubjectID is the authenticated subject extracted from JWT claims ("sub").
// Its format is controlled by the IdP.
type SubjectID string

// UserID identifies a user record. A user's ID is the subject it was created by.
type UserID string

// GroupID is an internal identifier for a group record.
type GroupID string

// PaymentID is an internal identifier for a payment record.
type PaymentID string

// UserIDFromSubject binds a verified subject to the user record it owns.
func UserIDFromSubject(sub SubjectID) UserID { return UserID(sub) }
