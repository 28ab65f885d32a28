package wsbase

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenQueryParam carries the auth token for clients that cannot set headers.
const TokenQueryParam = "token"

const bearerScheme = "bearer"

// IsAuthorizedRequest reports whether r carries the expected token, either as
// "Authorization: Bearer <token>" or as a ?token= query parameter. An empty
// expected token authorizes every request.
func IsAuthorizedRequest(expectedToken string, r *http.Request) bool {
	expected := strings.TrimSpace(expectedToken)
	if expected == "" {
		return true
	}
	for _, presented := range presentedTokens(r) {
		if tokensEqual(expected, presented) {
			return true
		}
	}
	return false
}

// presentedTokens returns the header token (scheme matched case-insensitively)
// followed by the query token. Blank values are left out.
func presentedTokens(r *http.Request) []string {
	var tokens []string
	scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if ok && strings.EqualFold(scheme, bearerScheme) {
		if v := strings.TrimSpace(value); v != "" {
			tokens = append(tokens, v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); v != "" {
		tokens = append(tokens, v)
	}
	return tokens
}

func tokensEqual(expected, actual string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// AuthHeader returns the request header a controller sends to present token.
// It returns nil for an empty token.
func AuthHeader(token string) http.Header {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
