// Package auth resolves admin API bearer tokens to scoped principals.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zeebo/blake3"
)

// AllScopes is held by the legacy admin key.
const AllScopes = "*"

var (
	ErrMissingToken   = errors.New("missing Authorization header")
	ErrMalformedToken = errors.New("invalid Authorization header format")
	ErrUnknownToken   = errors.New("invalid API key")
)

// readScopeOf maps a write scope to the read scope it includes.
var readScopeOf = map[string]string{
	"tasks:rw":   "tasks:ro",
	"history:rw": "history:ro",
	"events:rw":  "events:ro",
}

// TokenConfig is a bearer token with a set of scopes.
type TokenConfig struct {
	Token  string
	Scopes []string
}

// Principal is an authenticated caller. The raw token is never retained;
// Fingerprint identifies the caller in logs.
type Principal struct {
	Fingerprint string
	Admin       bool
	scopes      map[string]struct{}
}

// Allows reports whether p may use a route guarded by any of required.
func (p Principal) Allows(required ...string) bool {
	if p.Admin || len(required) == 0 {
		return true
	}
	for _, s := range required {
		if _, ok := p.scopes[s]; ok {
			return true
		}
	}
	return false
}

// Scopes returns the effective scopes, implied read scopes included.
func (p Principal) Scopes() []string {
	if p.Admin {
		return []string{AllScopes}
	}
	out := make([]string, 0, len(p.scopes))
	for s := range p.scopes {
		out = append(out, s)
	}
	return out
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

type keyEntry struct {
	token     []byte
	principal Principal
}

// Keyring holds every bearer token the admin API accepts.
type Keyring struct {
	entries []keyEntry
}

// NewKeyring builds a keyring from the legacy admin key and the scoped
// tokens. Empty tokens are skipped. The admin key wins when a scoped token
// duplicates it.
func NewKeyring(adminKey string, tokens []TokenConfig) *Keyring {
	k := &Keyring{}
	if adminKey != "" {
		k.entries = append(k.entries, keyEntry{
			token:     []byte(adminKey),
			principal: Principal{Fingerprint: Fingerprint(adminKey), Admin: true},
		})
	}
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		scopes := effectiveScopes(t.Scopes)
		_, admin := scopes[AllScopes]
		k.entries = append(k.entries, keyEntry{
			token:     []byte(t.Token),
			principal: Principal{Fingerprint: Fingerprint(t.Token), Admin: admin, scopes: scopes},
		})
	}
	return k
}

// Len is the number of accepted tokens.
func (k *Keyring) Len() int { return len(k.entries) }

// Authenticate resolves the request's bearer token.
func (k *Keyring) Authenticate(r *http.Request) (Principal, error) {
	presented, err := ExtractBearerToken(r)
	if err != nil {
		return Principal{}, err
	}
	return k.Lookup(presented)
}

// Lookup matches a presented token against every entry without
// short-circuiting, so timing does not reveal which entry matched.
func (k *Keyring) Lookup(presented string) (Principal, error) {
	if presented == "" {
		return Principal{}, ErrUnknownToken
	}
	var (
		found Principal
		ok    bool
	)
	p := []byte(presented)
	for _, e := range k.entries {
		if subtle.ConstantTimeCompare(p, e.token) == 1 && !ok {
			found, ok = e.principal, true
		}
	}
	if !ok {
		return Principal{}, ErrUnknownToken
	}
	return found, nil
}

// ExtractBearerToken reads the token from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", ErrMalformedToken
	}
	token := strings.TrimSpace(rest)
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrMalformedToken)
	}
	return token, nil
}

// Fingerprint is a short, stable, non-reversible label for a token.
func Fingerprint(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}

func effectiveScopes(scopes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			out[s] = struct{}{}
		}
	}
	for rw, ro := range readScopeOf {
		if _, ok := out[rw]; ok {
			out[ro] = struct{}{}
		}
	}
	return out
}
