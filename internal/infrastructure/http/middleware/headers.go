package middleware

import (
	"net/http"
	"strings"
)

// contentSecurityPolicy allows htmx from unpkg and the assistant socket;
// no inline or evaluated script is permitted
var contentSecurityPolicy = [][2]string{
	{"default-src", "'self'"},
	{"script-src", "'self' https://unpkg.com"},
	{"style-src", "'self' 'unsafe-inline'"},
	{"img-src", "'self' data: https:"},
	{"font-src", "'self' data:"},
	{"connect-src", "'self' ws: wss:"},
	{"frame-ancestors", "'none'"},
	{"base-uri", "'none'"},
	{"object-src", "'none'"},
}

func cspHeader() string {
	directives := make([]string, len(contentSecurityPolicy))
	for i, d := range contentSecurityPolicy {
		directives[i] = d[0] + " " + d[1]
	}
	return strings.Join(directives, "; ")
}

// securityHeaders builds the static header set once. HSTS is only sent in
// production where TLS terminates in front of the server.
func securityHeaders(production bool) http.Header {
	h := http.Header{}
	h.Set("Content-Security-Policy", cspHeader())
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	if production {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}
	return h
}
