package domain

import "time"

// Claims is the verified token payload. The engine only reads Subject.
type Claims struct {
	Subject         SubjectID
	Audience        []string
	Issuer          string
	IssuedAt        time.Time
	ExpiresAt       time.Time
	AuthorizedParty string
	Scope           string
}

// AuthState is either Authorized(claims) or Unauthorized.
// The zero value is Unauthorized.
type AuthState struct {
	claims *Claims
}

// Authorized returns the state of a caller whose token verified.
func Authorized(c Claims) AuthState {
	return AuthState{claims: &c}
}

// Unauthorized returns the state of a caller without a verified identity.
func Unauthorized() AuthState { return AuthState{} }

func (a AuthState) IsAuthorized() bool { return a.claims != nil }

// Claims returns the verified claims, if any.
func (a AuthState) Claims() (Claims, bool) {
	if a.claims == nil {
		return Claims{}, false
	}
	return *a.claims, true
}

// Subject returns the user ID owned by the caller, if authorized.
func (a AuthState) Subject() (UserID, bool) {
	if a.claims == nil || a.claims.Subject == "" {
		return "", false
	}
	return UserIDFromSubject(a.claims.Subject), true
}
