package middleware

import (
	"net/http"
	"strings"
)

const (
	bookingAPIHeaders = "Content-Type, X-Request-ID"
	bookingAPIMethods = "GET, POST, PATCH, OPTIONS"
	preflightMaxAge   = "600"
)

// corsPolicy is the parsed CORS_ALLOWED_ORIGINS list.
type corsPolicy struct {
	listed   map[string]struct{}
	wildcard bool
}

func parseCORSOrigins(origins []string) corsPolicy {
	p := corsPolicy{listed: map[string]struct{}{}}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.listed[origin] = struct{}{}
		}
	}
	return p
}

// credentialed reports whether origin may send the session cookie. Only
// explicitly listed origins qualify; "*" never does.
func (p corsPolicy) credentialed(origin string) bool {
	_, ok := p.listed[origin]
	return ok
}

func (p corsPolicy) allows(origin string) bool {
	return p.wildcard || p.credentialed(origin)
}

// CrossSiteSessions reports whether origins names at least one embedding
// site that shares the visitor's booking session. The session cookie must
// then be SameSite=None so the browser sends it on cross-site API calls.
func CrossSiteSessions(origins []string) bool {
	return len(parseCORSOrigins(origins).listed) > 0
}

// CORS lets other sites drive the JSON booking API from the browser.
//
// Listed origins are answered with Access-Control-Allow-Credentials so a
// field PATCH and the following submit carry the same session cookie. "*"
// reflects any Origin without credentials; such callers get a fresh session
// per request and must send their edits with the submit call.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := parseCORSOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			if policy.allows(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Headers", bookingAPIHeaders)
				h.Set("Access-Control-Allow-Methods", bookingAPIMethods)
				h.Set("Access-Control-Max-Age", preflightMaxAge)
				if policy.credentialed(origin) {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
