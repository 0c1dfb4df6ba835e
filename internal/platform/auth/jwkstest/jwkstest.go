// Package jwkstest serves a swappable JWKS document and mints RS256 tokens
// against it for tests and local development.
package jwkstest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: kid, Private: priv}, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// MarshalJWKS renders the public halves of keys as a JWKS document.
func MarshalJWKS(keys []Keypair) ([]byte, error) {
	set := struct {
		Keys []jwk `json:"keys"`
	}{Keys: make([]jwk, 0, len(keys))}
	for _, kp := range keys {
		pub := kp.Private.PublicKey
		set.Keys = append(set.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kp.Kid,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return json.Marshal(set)
}

// Server is an httptest JWKS endpoint whose key set can be rotated.
type Server struct {
	*httptest.Server
	doc atomic.Value // []byte
}

func NewServer() *Server {
	s := &Server{}
	s.doc.Store([]byte(`{"keys":[]}`))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(s.doc.Load().([]byte))
	}))
	return s
}

// SetKeys replaces the published key set.
func (s *Server) SetKeys(keys ...Keypair) {
	b, err := MarshalJWKS(keys)
	if err != nil {
		panic(err)
	}
	s.doc.Store(b)
}

// Token describes the claims of a minted test token.
type Token struct {
	Issuer   string
	Audience []string
	Subject  string
	Scope    string

	IssuedAt time.Time
	TTL      time.Duration
	// NotBefore is relative to IssuedAt; nil omits nbf.
	NotBefore *time.Duration
}

// Mint signs t with kp using RS256 and sets the kid header.
func Mint(kp Keypair, t Token) (string, error) {
	claims := jwt.MapClaims{
		"iss": t.Issuer,
		"sub": t.Subject,
		"iat": t.IssuedAt.Unix(),
		"exp": t.IssuedAt.Add(t.TTL).Unix(),
	}
	switch len(t.Audience) {
	case 0:
	case 1:
		claims["aud"] = t.Audience[0]
	default:
		claims["aud"] = t.Audience
	}
	if t.NotBefore != nil {
		claims["nbf"] = t.IssuedAt.Add(*t.NotBefore).Unix()
	}
	if t.Scope != "" {
		claims["scope"] = t.Scope
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kp.Kid
	return tok.SignedString(kp.Private)
}
