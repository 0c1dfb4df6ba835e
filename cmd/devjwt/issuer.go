package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warikan-app/warikan-api/internal/platform/auth/jwkstest"
)

type issuerOptions struct {
	Issuer   string
	Audience string
	Kid      string
	TTL      time.Duration
}

// maxTTL caps the ttl query parameter.
const maxTTL = 24 * time.Hour

// backdate covers verifiers whose clock trails ours.
const backdate = 5 * time.Second

type issuer struct {
	kp   jwkstest.Keypair
	opts issuerOptions
	jwks []byte
	now  func() time.Time
}

func newIssuer(kp jwkstest.Keypair, opts issuerOptions) (*issuer, error) {
	doc, err := jwkstest.MarshalJWKS([]jwkstest.Keypair{kp})
	if err != nil {
		return nil, fmt.Errorf("marshal jwks: %w", err)
	}
	return &issuer{kp: kp, opts: opts, jwks: doc, now: time.Now}, nil
}

func (i *issuer) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/.well-known/jwks.json", i.serveJWKS)
	r.Get("/token", i.mintToken)
	return r
}

func (i *issuer) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(i.jwks)
}

type tokenResponse struct {
	Token     string `json:"token"`
	Subject   string `json:"sub"`
	Issuer    string `json:"iss"`
	Audience  string `json:"aud"`
	Scope     string `json:"scope,omitempty"`
	ExpiresAt int64  `json:"exp"`
}

// mintToken handles GET /token?sub=alice[&scope=...][&ttl=10m].
func (i *issuer) mintToken(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sub := strings.TrimSpace(q.Get("sub"))
	if sub == "" {
		http.Error(w, "sub is required", http.StatusBadRequest)
		return
	}
	ttl := i.opts.TTL
	if raw := q.Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 || d > maxTTL {
			http.Error(w, "ttl must be a positive duration up to "+maxTTL.String(), http.StatusBadRequest)
			return
		}
		ttl = d
	}

	issued := i.now().UTC().Add(-backdate)
	tok, err := jwkstest.Mint(i.kp, jwkstest.Token{
		Issuer:   i.opts.Issuer,
		Audience: []string{i.opts.Audience},
		Subject:  sub,
		Scope:    q.Get("scope"),
		IssuedAt: issued,
		TTL:      ttl,
	})
	if err != nil {
		http.Error(w, "mint failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		Token:     tok,
		Subject:   sub,
		Issuer:    i.opts.Issuer,
		Audience:  i.opts.Audience,
		Scope:     q.Get("scope"),
		ExpiresAt: issued.Add(ttl).Unix(),
	})
}
