package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"herald/internal/errors"
	"herald/internal/httputil"
)

// requireAPIKey authenticates admin API requests. The key is accepted in the
// X-API-Key header or as an Authorization bearer token. Comparison is
// constant-time over fixed-length digests so key length is not observable.
//
// When no key is configured (development mode), requests pass through; the
// config layer refuses to start in production without one.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		configured := s.cfg.Server.APIKey
		if configured == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get("X-API-Key")
		if presented == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if presented == "" || !keysEqual(configured, presented) {
			s.logger.WithField("remote_ip", httputil.GetClientIP(r)).Warn("Rejected unauthenticated admin API request")
			s.writeError(w, r, errors.NewAuthError("invalid or missing API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func keysEqual(a, b string) bool {
	da := sha256.Sum256([]byte(a))
	db := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}
