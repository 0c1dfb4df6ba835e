package httpapi

import (
	"time"

	"github.com/warikan-app/warikan-api/internal/domain"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	Participants []string  `json:"participants"`
}

type Payment struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	GroupID   string    `json:"groupId"`
	Creditor  string    `json:"creditor"`
	Debtors   []string  `json:"debtors"`
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

type CreateGroupRequest struct {
	Title string `json:"title"`
}

type AddParticipantRequest struct {
	UserID string `json:"userId"`
}

type CreatePaymentRequest struct {
	Title    string   `json:"title"`
	GroupID  string   `json:"groupId"`
	Creditor string   `json:"creditor"`
	Debtors  []string `json:"debtors"`
}

type UserResponse struct {
	User User `json:"user"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type GroupResponse struct {
	Group Group `json:"group"`
}

type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

type PaymentResponse struct {
	Payment Payment `json:"payment"`
}

type PaymentsResponse struct {
	Payments []Payment `json:"payments"`
}

// DeletedResponse echoes the ID of a removed record.
type DeletedResponse struct {
	ID string `json:"id"`
}

func userFromDomain(u domain.User) User {
	return User{ID: string(u.ID), Name: u.Name}
}

func groupFromDomain(g domain.Group) Group {
	return Group{
		ID:           string(g.ID),
		Title:        g.Title,
		CreatedAt:    g.CreatedAt.UTC(),
		Participants: userIDStrings(g.Participants),
	}
}

func paymentFromDomain(p domain.Payment) Payment {
	return Payment{
		ID:        string(p.ID),
		Title:     p.Title,
		CreatedAt: p.CreatedAt.UTC(),
		GroupID:   string(p.Group),
		Creditor:  string(p.Creditor),
		Debtors:   userIDStrings(p.Debtors),
	}
}

func userIDStrings(ids []domain.UserID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func userIDsFromStrings(ss []string) []domain.UserID {
	out := make([]domain.UserID, 0, len(ss))
	for _, s := range ss {
		out = append(out, domain.UserID(s))
	}
	return out
}
