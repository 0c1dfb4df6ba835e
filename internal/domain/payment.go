package domain

import "time"

// Payment records that Creditor paid on behalf of Debtors within Group.
//
// Creditor and Debtors are expected to be participants of Group, but this is
// not enforced.
type Payment struct {
	ID        PaymentID
	CreatedAt time.Time
	Title     string
	Group     GroupID
	Creditor  UserID
	Debtors   []UserID
}

// Clone returns a deep copy of p.
func (p Payment) Clone() Payment {
	out := p
	out.Debtors = append([]UserID(nil), p.Debtors...)
	return out
}
