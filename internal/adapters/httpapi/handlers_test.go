package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memidempotency "github.com/warikan-app/warikan-api/internal/adapters/memory/idempotency"
	memrepo "github.com/warikan-app/warikan-api/internal/adapters/memory/warikanrepo"
	"github.com/warikan-app/warikan-api/internal/app/warikan"
	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/clock"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

type apiFixture struct {
	h   http.Handler
	clk *clock.ManualClock
}

func newAPI(t *testing.T, r repo.Repository, opts RouterOptions) apiFixture {
	t.Helper()
	if r == nil {
		r = memrepo.NewRepo()
	}
	clk := clock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := warikan.NewService(r, clk)
	if opts.AuthMiddleware == nil {
		opts.AuthMiddleware = NewDevAuthMiddleware("")
	}
	s := NewServer(svc, memidempotency.NewStore(time.Hour), clk)
	return apiFixture{h: NewRouterWithOptions(s, opts), clk: clk}
}

type call struct {
	method  string
	path    string
	subject string
	body    any
	header  map[string]string
}

func (f apiFixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	switch b := c.body.(type) {
	case nil:
	case string:
		body.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(b))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.subject != "" {
		req.Header.Set("X-Debug-Subject", c.subject)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	// Distinct timestamps keep list ordering deterministic.
	f.clk.Advance(time.Second)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body=%s", rec.Body.String())
	return v
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, "body=%s", rec.Body.String())
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	requireStatus(t, rec, status)
	er := decode[ErrorResponse](t, rec)
	require.Equal(t, code, er.Error.Code)
	return er
}

func (f apiFixture) createGroup(t *testing.T, sub, title string) Group {
	t.Helper()
	rec := f.do(t, call{method: http.MethodPost, path: "/groups", subject: sub, body: CreateGroupRequest{Title: title}})
	requireStatus(t, rec, http.StatusCreated)
	return decode[GroupResponse](t, rec).Group
}

func (f apiFixture) createPayment(t *testing.T, sub string, in CreatePaymentRequest) Payment {
	t.Helper()
	rec := f.do(t, call{method: http.MethodPost, path: "/payments", subject: sub, body: in})
	requireStatus(t, rec, http.StatusCreated)
	return decode[PaymentResponse](t, rec).Payment
}

func TestAPI_UnauthenticatedCallerGets401WithRequestID(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	for _, c := range []call{
		{method: http.MethodPost, path: "/users", body: CreateUserRequest{Name: "alice"}},
		{method: http.MethodGet, path: "/groups"},
		{method: http.MethodGet, path: "/groups/g1"},
		{method: http.MethodDelete, path: "/payments/p1"},
	} {
		rec := f.do(t, c)
		er := requireErrorCode(t, rec, http.StatusUnauthorized, warikan.CodeUnauthorized)
		rid, err := er.Error.RequestID.Get()
		require.NoError(t, err)
		assert.NotEmpty(t, rid)
	}
}

func TestAPI_Users(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})

	rec := f.do(t, call{method: http.MethodPost, path: "/users", subject: "alice", body: CreateUserRequest{Name: "  Alice   Liddell "}})
	requireStatus(t, rec, http.StatusCreated)
	assert.Equal(t, User{ID: "alice", Name: "Alice Liddell"}, decode[UserResponse](t, rec).User)

	rec = f.do(t, call{method: http.MethodPost, path: "/users", subject: "alice", body: CreateUserRequest{Name: "again"}})
	requireErrorCode(t, rec, http.StatusConflict, warikan.CodeConflict)

	rec = f.do(t, call{method: http.MethodPost, path: "/users", subject: "bob", body: CreateUserRequest{Name: "Bob"}})
	requireStatus(t, rec, http.StatusCreated)

	rec = f.do(t, call{method: http.MethodGet, path: "/users?id=bob&id=alice", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	users := decode[UsersResponse](t, rec).Users
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].ID)
	assert.Equal(t, "alice", users[1].ID)

	rec = f.do(t, call{method: http.MethodGet, path: "/users/nobody", subject: "alice"})
	requireErrorCode(t, rec, http.StatusNotFound, warikan.CodeNotFound)

	rec = f.do(t, call{method: http.MethodDelete, path: "/users/bob", subject: "alice"})
	requireErrorCode(t, rec, http.StatusUnauthorized, warikan.CodeUnauthorized)

	rec = f.do(t, call{method: http.MethodDelete, path: "/users/alice", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "alice", decode[DeletedResponse](t, rec).ID)

	rec = f.do(t, call{method: http.MethodGet, path: "/users/alice", subject: "bob"})
	requireErrorCode(t, rec, http.StatusNotFound, warikan.CodeNotFound)
}

func TestAPI_Scenario_NonMemberThenCascade(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	g := f.createGroup(t, "alice", "Trip")
	assert.Equal(t, []string{"alice"}, g.Participants)

	// Bob is not a participant: existence is never disclosed.
	rec := f.do(t, call{method: http.MethodGet, path: "/groups/" + g.ID, subject: "bob"})
	requireErrorCode(t, rec, http.StatusUnauthorized, warikan.CodeUnauthorized)
	rec = f.do(t, call{method: http.MethodGet, path: "/groups/" + g.ID + "/payments", subject: "bob"})
	requireErrorCode(t, rec, http.StatusUnauthorized, warikan.CodeUnauthorized)

	p := f.createPayment(t, "alice", CreatePaymentRequest{Title: "Dinner", GroupID: g.ID, Creditor: "alice", Debtors: []string{"alice", "bob"}})
	assert.Equal(t, g.ID, p.GroupID)
	assert.Equal(t, []string{"alice", "bob"}, p.Debtors)

	rec = f.do(t, call{method: http.MethodGet, path: "/payments/" + p.ID, subject: "bob"})
	requireErrorCode(t, rec, http.StatusUnauthorized, warikan.CodeUnauthorized)

	rec = f.do(t, call{method: http.MethodPost, path: "/groups/" + g.ID + "/participants", subject: "alice", body: AddParticipantRequest{UserID: "bob"}})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, []string{"alice", "bob"}, decode[GroupResponse](t, rec).Group.Participants)

	rec = f.do(t, call{method: http.MethodGet, path: "/payments/" + p.ID, subject: "bob"})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, p, decode[PaymentResponse](t, rec).Payment)

	rec = f.do(t, call{method: http.MethodGet, path: "/groups", subject: "bob"})
	requireStatus(t, rec, http.StatusOK)
	groups := decode[GroupsResponse](t, rec).Groups
	require.Len(t, groups, 1)
	assert.Equal(t, g.ID, groups[0].ID)

	rec = f.do(t, call{method: http.MethodDelete, path: "/groups/" + g.ID, subject: "bob"})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, g.ID, decode[DeletedResponse](t, rec).ID)

	rec = f.do(t, call{method: http.MethodGet, path: "/payments/" + p.ID, subject: "alice"})
	requireErrorCode(t, rec, http.StatusNotFound, warikan.CodeNotFound)
	rec = f.do(t, call{method: http.MethodGet, path: "/groups", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	assert.Empty(t, decode[GroupsResponse](t, rec).Groups)
}

func TestAPI_PaymentsListedInCreationOrderAndDeleted(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	g := f.createGroup(t, "alice", "Flat")
	p1 := f.createPayment(t, "alice", CreatePaymentRequest{Title: "Rent", GroupID: g.ID, Creditor: "alice"})
	p2 := f.createPayment(t, "alice", CreatePaymentRequest{Title: "Power", GroupID: g.ID, Creditor: "alice"})

	rec := f.do(t, call{method: http.MethodGet, path: "/groups/" + g.ID + "/payments", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	ps := decode[PaymentsResponse](t, rec).Payments
	require.Len(t, ps, 2)
	assert.Equal(t, []string{p1.ID, p2.ID}, []string{ps[0].ID, ps[1].ID})
	assert.Equal(t, []string{}, ps[0].Debtors)

	rec = f.do(t, call{method: http.MethodDelete, path: "/payments/" + p1.ID, subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	rec = f.do(t, call{method: http.MethodDelete, path: "/payments/" + p1.ID, subject: "alice"})
	requireErrorCode(t, rec, http.StatusNotFound, warikan.CodeNotFound)
}

func TestAPI_CreateGroup_IdempotencyKey(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	key := map[string]string{headerIdempotencyKey: "k-1"}

	first := f.do(t, call{method: http.MethodPost, path: "/groups", subject: "alice", body: CreateGroupRequest{Title: "Trip"}, header: key})
	requireStatus(t, first, http.StatusCreated)
	created := decode[GroupResponse](t, first).Group

	// Normalization applies before hashing, so whitespace differences replay.
	replay := f.do(t, call{method: http.MethodPost, path: "/groups", subject: "alice", body: CreateGroupRequest{Title: " Trip "}, header: key})
	requireStatus(t, replay, http.StatusCreated)
	assert.Equal(t, "true", replay.Header().Get(headerReplayed))
	assert.Equal(t, created, decode[GroupResponse](t, replay).Group)

	rec := f.do(t, call{method: http.MethodGet, path: "/groups", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[GroupsResponse](t, rec).Groups, 1)

	rec = f.do(t, call{method: http.MethodPost, path: "/groups", subject: "alice", body: CreateGroupRequest{Title: "Other"}, header: key})
	requireErrorCode(t, rec, http.StatusConflict, codeIdemKeyReuse)

	// Keys are scoped per subject.
	rec = f.do(t, call{method: http.MethodPost, path: "/groups", subject: "bob", body: CreateGroupRequest{Title: "Other"}, header: key})
	requireStatus(t, rec, http.StatusCreated)
	assert.NotEqual(t, created.ID, decode[GroupResponse](t, rec).Group.ID)
}

func TestAPI_CreatePayment_IdempotencyKeyDoesNotReplayFailures(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	key := map[string]string{headerIdempotencyKey: "k-pay"}
	g := f.createGroup(t, "alice", "Cab")
	in := CreatePaymentRequest{Title: "Taxi", GroupID: g.ID, Creditor: "alice"}

	// Bob is not yet a participant; the failure is not stored for replay.
	rec := f.do(t, call{method: http.MethodPost, path: "/payments", subject: "bob", body: in, header: key})
	requireErrorCode(t, rec, http.StatusUnauthorized, warikan.CodeUnauthorized)

	rec = f.do(t, call{method: http.MethodPost, path: "/groups/" + g.ID + "/participants", subject: "alice", body: AddParticipantRequest{UserID: "bob"}})
	requireStatus(t, rec, http.StatusOK)

	first := f.do(t, call{method: http.MethodPost, path: "/payments", subject: "bob", body: in, header: key})
	requireStatus(t, first, http.StatusCreated)
	assert.Empty(t, first.Header().Get(headerReplayed))
	second := f.do(t, call{method: http.MethodPost, path: "/payments", subject: "bob", body: in, header: key})
	requireStatus(t, second, http.StatusCreated)
	assert.Equal(t, "true", second.Header().Get(headerReplayed))
	assert.Equal(t, decode[PaymentResponse](t, first).Payment, decode[PaymentResponse](t, second).Payment)

	rec = f.do(t, call{method: http.MethodGet, path: "/groups/" + g.ID + "/payments", subject: "alice"})
	requireStatus(t, rec, http.StatusOK)
	assert.Len(t, decode[PaymentsResponse](t, rec).Payments, 1)
}

func TestAPI_MalformedInput_422(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	rec := f.do(t, call{method: http.MethodPost, path: "/groups", subject: "alice", body: "{"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, codeValidation)

	rec = f.do(t, call{method: http.MethodPost, path: "/payments", subject: "alice", body: `{"debtors":"alice"}`})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, codeValidation)
}

func TestAPI_UnknownRoute_JSON404(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	rec := f.do(t, call{method: http.MethodGet, path: "/nope", subject: "alice"})
	requireErrorCode(t, rec, http.StatusNotFound, codeRouteNotFound)

	rec = f.do(t, call{method: http.MethodPut, path: "/groups/g1", subject: "alice"})
	requireErrorCode(t, rec, http.StatusMethodNotAllowed, codeMethodNotAllow)
}

type brokenRepo struct {
	*memrepo.Repo
	err error
}

func (r brokenRepo) GetGroup(context.Context, domain.GroupID) (domain.Group, bool, error) {
	return domain.Group{}, false, r.err
}

func TestAPI_StoreFailureIsGeneric500(t *testing.T) {
	t.Parallel()

	f := newAPI(t, brokenRepo{Repo: memrepo.NewRepo(), err: errors.New("connection reset by peer")}, RouterOptions{})
	rec := f.do(t, call{method: http.MethodGet, path: "/groups/g1", subject: "alice"})
	er := requireErrorCode(t, rec, http.StatusInternalServerError, codeInternal)
	assert.NotContains(t, er.Error.Message, "connection reset")
	assert.False(t, er.Error.Details.IsSpecified())
}

func TestAPI_Healthz(t *testing.T) {
	t.Parallel()

	f := newAPI(t, nil, RouterOptions{})
	rec := f.do(t, call{method: http.MethodGet, path: "/healthz"})
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}
