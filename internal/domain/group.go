package domain

import "time"

// Group is a set of participants sharing payments.
//
// Participants is ordered and append-only; the creator is always first.
type Group struct {
	ID           GroupID
	CreatedAt    time.Time
	Title        string
	Participants []UserID
}

// HasParticipant reports whether u is a participant of g.
func (g Group) HasParticipant(u UserID) bool {
	return ContainsUserID(g.Participants, u)
}

// Clone returns a deep copy of g.
func (g Group) Clone() Group {
	out := g
	out.Participants = append([]UserID(nil), g.Participants...)
	return out
}
