// Package webauth implements an HTTP Basic/token authentication
// challenge as a composable wrapper over a web.Handler, grounded on
// original_source/fooster/web/auth.py's auth mixin and re-architected
// per spec.md's Design Notes as middleware rather than multiple
// inheritance.
package webauth

import (
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/fooweb/pkg/web"
)

// PasswordStore verifies a username/password pair, typically backed
// by a map of username -> bcrypt hash.
type PasswordStore interface {
	Verify(user, pass string) bool
}

// BcryptStore is a PasswordStore backed by bcrypt password hashes.
type BcryptStore map[string][]byte // username -> bcrypt hash

// Verify reports whether pass matches the stored hash for user.
func (s BcryptStore) Verify(user, pass string) bool {
	hash, ok := s[user]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(pass)) == nil
}

// HashPassword bcrypt-hashes pass at the default cost, for building a
// BcryptStore at configuration time.
func HashPassword(pass string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
}

// TokenStore verifies a bearer token.
type TokenStore interface {
	VerifyToken(token string) bool
}

// Wrap returns a handler that requires HTTP Basic authentication
// against store before delegating to next; on failure it responds
// 401 with a WWW-Authenticate challenge naming realm.
func Wrap(next web.Handler, store PasswordStore, realm string) web.Handler {
	return &basicAuthHandler{next: next, store: store, realm: realm}
}

// WrapToken returns a handler that requires a bearer token verified
// by store before delegating to next.
func WrapToken(next web.Handler, store TokenStore, realm string) web.Handler {
	return &tokenAuthHandler{next: next, store: store, realm: realm}
}

type basicAuthHandler struct {
	next  web.Handler
	store PasswordStore
	realm string
}

func (h *basicAuthHandler) Method(method string) (web.MethodFunc, bool) {
	fn, ok := h.next.Method(method)
	if !ok {
		return nil, false
	}
	return func(req *web.Request, resp *web.Response) web.Result {
		user, pass, ok := parseBasicAuth(req.Header.Get("Authorization", ""))
		if !ok || !h.store.Verify(user, pass) {
			panic(&web.Error{Code: 401, Header: authChallengeHeader(h.realm)})
		}
		return fn(req, resp)
	}, true
}

func authChallengeHeader(realm string) *web.Header {
	h := web.NewHeader()
	h.Set("WWW-Authenticate", `Basic realm="`+realm+`"`, true)
	return h
}

func (h *basicAuthHandler) AllowedMethods() []string          { return h.next.AllowedMethods() }
func (h *basicAuthHandler) IsReaderMethod(method string) bool { return h.next.IsReaderMethod(method) }
func (h *basicAuthHandler) Decode(b []byte) ([]byte, error)   { return h.next.Decode(b) }
func (h *basicAuthHandler) Encode(r web.Result) (web.Result, error) { return h.next.Encode(r) }
func (h *basicAuthHandler) CheckContinue(r *web.Request) error      { return h.next.CheckContinue(r) }

type tokenAuthHandler struct {
	next  web.Handler
	store TokenStore
	realm string
}

func (h *tokenAuthHandler) Method(method string) (web.MethodFunc, bool) {
	fn, ok := h.next.Method(method)
	if !ok {
		return nil, false
	}
	return func(req *web.Request, resp *web.Response) web.Result {
		token := bearerToken(req.Header.Get("Authorization", ""))
		if token == "" || !h.store.VerifyToken(token) {
			panic(&web.Error{Code: 401, Header: authChallengeHeader(h.realm)})
		}
		return fn(req, resp)
	}, true
}

func (h *tokenAuthHandler) AllowedMethods() []string          { return h.next.AllowedMethods() }
func (h *tokenAuthHandler) IsReaderMethod(method string) bool { return h.next.IsReaderMethod(method) }
func (h *tokenAuthHandler) Decode(b []byte) ([]byte, error)   { return h.next.Decode(b) }
func (h *tokenAuthHandler) Encode(r web.Result) (web.Result, error) { return h.next.Encode(r) }
func (h *tokenAuthHandler) CheckContinue(r *web.Request) error      { return h.next.CheckContinue(r) }

func parseBasicAuth(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return header[len(prefix):]
}
