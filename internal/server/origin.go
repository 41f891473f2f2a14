package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ruminaider/profilepop/internal/router"
	"go.uber.org/zap"
)

// KindForbidden marks a request refused before it reached the router.
const KindForbidden router.Kind = "Forbidden"

// extensionSchemes are the origins browsers give extension pages.
var extensionSchemes = map[string]bool{
	"chrome-extension":     true,
	"moz-extension":        true,
	"safari-web-extension": true,
}

// OriginPolicy decides which browser origins may use the API. Requests with
// no Origin header come from non-browser clients and are allowed; web pages
// always send one.
type OriginPolicy struct {
	extra map[string]bool
}

// NewOriginPolicy allows extension origins plus the exact origins in extra.
func NewOriginPolicy(extra ...string) OriginPolicy {
	p := OriginPolicy{extra: make(map[string]bool, len(extra))}
	for _, o := range extra {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			p.extra[strings.ToLower(o)] = true
		}
	}
	return p
}

// Allows reports whether a request carrying origin may proceed.
func (p OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return true
	}
	if p.extra[strings.ToLower(origin)] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return extensionSchemes[strings.ToLower(u.Scheme)]
}

func (p OriginPolicy) allowsRequest(r *http.Request) bool {
	return p.Allows(r.Header.Get("Origin"))
}

// originGuard rejects requests from origins the policy does not allow.
func originGuard(p OriginPolicy, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !p.allowsRequest(r) {
				log.Warn("request from disallowed origin",
					zap.String("origin", r.Header.Get("Origin")),
					zap.String("path", r.URL.Path),
				)
				respondWithJSON(w, http.StatusForbidden, router.Response{
					Error: &router.Failure{Kind: KindForbidden, Message: "Origin not allowed."},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
