package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/warikan-app/warikan-api/internal/app/warikan"
	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/clock"
	clockport "github.com/warikan-app/warikan-api/internal/ports/out/clock"
	"github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server adapts HTTP requests to the warikan use cases.
type Server struct {
	Warikan *warikan.Service
	Idem    idempotency.Store
	Clock   clockport.Clock
}

// NewServer wires the adapter. idem may be nil, which disables replay.
func NewServer(svc *warikan.Service, idem idempotency.Store, clk clockport.Clock) *Server {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Server{Warikan: svc, Idem: idem, Clock: clk}
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := s.Warikan.CreateUser(r.Context(), AuthStateFromContext(r.Context()), req.Name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, UserResponse{User: userFromDomain(u)})
}

func (s *Server) GetUsers(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := runtime.BindQueryParameter("form", true, false, "id", r.URL.Query(), &ids); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, codeValidation, fmt.Sprintf("invalid format for parameter id: %s", err), nil)
		return
	}
	us, err := s.Warikan.GetUsers(r.Context(), AuthStateFromContext(r.Context()), userIDsFromStrings(ids))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := UsersResponse{Users: make([]User, 0, len(us))}
	for _, u := range us {
		out.Users = append(out.Users, userFromDomain(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "userId")
	if !ok {
		return
	}
	u, err := s.Warikan.GetUser(r.Context(), AuthStateFromContext(r.Context()), domain.UserID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{User: userFromDomain(u)})
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "userId")
	if !ok {
		return
	}
	deleted, err := s.Warikan.DeleteUser(r.Context(), AuthStateFromContext(r.Context()), domain.UserID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{ID: string(deleted)})
}

func (s *Server) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	canon := req
	canon.Title = domain.NormalizeHumanName(canon.Title)
	s.createIdempotent(w, r, "/groups", canon, func() (any, error) {
		g, err := s.Warikan.CreateGroup(r.Context(), AuthStateFromContext(r.Context()), req.Title)
		if err != nil {
			return nil, err
		}
		return GroupResponse{Group: groupFromDomain(g)}, nil
	})
}

func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	gs, err := s.Warikan.ListGroupsForUser(r.Context(), AuthStateFromContext(r.Context()))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := GroupsResponse{Groups: make([]Group, 0, len(gs))}
	for _, g := range gs {
		out.Groups = append(out.Groups, groupFromDomain(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "groupId")
	if !ok {
		return
	}
	g, err := s.Warikan.GetGroup(r.Context(), AuthStateFromContext(r.Context()), domain.GroupID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupResponse{Group: groupFromDomain(g)})
}

func (s *Server) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "groupId")
	if !ok {
		return
	}
	deleted, err := s.Warikan.DeleteGroup(r.Context(), AuthStateFromContext(r.Context()), domain.GroupID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{ID: string(deleted)})
}

func (s *Server) AddParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "groupId")
	if !ok {
		return
	}
	var req AddParticipantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	g, err := s.Warikan.AddParticipant(r.Context(), AuthStateFromContext(r.Context()), domain.GroupID(id), domain.UserID(req.UserID))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GroupResponse{Group: groupFromDomain(g)})
}

func (s *Server) ListGroupPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "groupId")
	if !ok {
		return
	}
	ps, err := s.Warikan.ListPaymentsByGroup(r.Context(), AuthStateFromContext(r.Context()), domain.GroupID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := PaymentsResponse{Payments: make([]Payment, 0, len(ps))}
	for _, p := range ps {
		out.Payments = append(out.Payments, paymentFromDomain(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	canon := req
	canon.Title = domain.NormalizeHumanName(canon.Title)
	s.createIdempotent(w, r, "/payments", canon, func() (any, error) {
		p, err := s.Warikan.CreatePayment(r.Context(), AuthStateFromContext(r.Context()), warikan.CreatePaymentInput{
			Title:    req.Title,
			Group:    domain.GroupID(req.GroupID),
			Creditor: domain.UserID(req.Creditor),
			Debtors:  userIDsFromStrings(req.Debtors),
		})
		if err != nil {
			return nil, err
		}
		return PaymentResponse{Payment: paymentFromDomain(p)}, nil
	})
}

func (s *Server) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "paymentId")
	if !ok {
		return
	}
	p, err := s.Warikan.GetPayment(r.Context(), AuthStateFromContext(r.Context()), domain.PaymentID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentResponse{Payment: paymentFromDomain(p)})
}

func (s *Server) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "paymentId")
	if !ok {
		return
	}
	deleted, err := s.Warikan.DeletePayment(r.Context(), AuthStateFromContext(r.Context()), domain.PaymentID(id))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{ID: string(deleted)})
}

// pathParam binds a simple-style path parameter. On failure it writes a 422
// and reports false.
func pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || v == "" {
		writeError(w, r, http.StatusUnprocessableEntity, codeValidation, fmt.Sprintf("invalid format for parameter %s", name), nil)
		return "", false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "malformed request body"
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			msg = "request body too large"
		}
		writeError(w, r, http.StatusUnprocessableEntity, codeValidation, msg, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
