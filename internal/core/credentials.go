package core

import (
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// CredentialStore holds the live bearer token shared by the client
// transport, the credential guard and every management handle. Readers
// always see the latest token; nothing else keeps a copy.
type CredentialStore struct {
	mu    sync.RWMutex
	token string
}

var _ oauth2.TokenSource = (*CredentialStore)(nil)

// NewCredentialStore returns a store holding token, which may be empty.
func NewCredentialStore(token string) *CredentialStore {
	return &CredentialStore{token: token}
}

// Get returns the current token or "".
func (s *CredentialStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the token.
func (s *CredentialStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token implements oauth2.TokenSource.
func (s *CredentialStore) Token() (*oauth2.Token, error) {
	tok := s.Get()
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

// WrapTransport adds the current token to every request that carries no
// Authorization header. Requests go out unauthenticated while the store is
// empty. Its signature matches rest.Config.WrapTransport.
func (s *CredentialStore) WrapTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &bearerTransport{
		store:  s,
		base:   rt,
		bearer: &oauth2.Transport{Source: s, Base: rt},
	}
}

type bearerTransport struct {
	store  *CredentialStore
	base   http.RoundTripper
	bearer *oauth2.Transport
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" || t.store.Get() == "" {
		return t.base.RoundTrip(req)
	}
	return t.bearer.RoundTrip(req)
}
