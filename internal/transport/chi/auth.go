package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Probes and scrapes stay reachable without a key.
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// BearerAuthMiddleware accepts requests whose "Authorization: Bearer <key>" matches
// one of apiKeys. Blank keys are ignored; with no keys left, auth is off.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, msg := bearerToken(r.Header.Get("Authorization"))
			if msg == "" && !knownKey(digests, token) {
				msg = "invalid api key"
			}
			if msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="semsync"`)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msg})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credentials of a Bearer header. The scheme is case-insensitive.
// A non-empty msg explains why the header is unusable.
func bearerToken(header string) (token, msg string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "authorization header must use Bearer scheme"
	}
	return strings.TrimSpace(token), ""
}

// knownKey compares digests so the comparison time does not depend on key length.
func knownKey(digests [][sha256.Size]byte, token string) bool {
	sum := sha256.Sum256([]byte(token))
	match := 0
	for i := range digests {
		match |= subtle.ConstantTimeCompare(digests[i][:], sum[:])
	}
	return match == 1
}
