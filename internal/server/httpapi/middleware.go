package httpapi

import (
	"context"
	"math"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/server/auth"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	clientIPContextKey  contextKey = "clientIP"
	identityContextKey  contextKey = "identity"
)

// bearerRe matches a syntactically well-formed Authorization header. Whether
// the token inside verifies is a separate question.
var bearerRe = regexp.MustCompile(`(?i)^Bearer\s+(\S+)$`)

func (rt *Router) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(req.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func (rt *Router) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, req)
	})
}

// clientIP resolves the address rate limiting keys on. X-Forwarded-For is
// honored only when TrustProxy is set, and only its rightmost entry; anything
// malformed falls back to the socket address.
func (rt *Router) clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := rt.extractClientIP(req)
		ctx := context.WithValue(req.Context(), clientIPContextKey, ip)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func (rt *Router) extractClientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	if !rt.config.TrustProxy {
		// strip so nothing downstream trusts them by accident
		req.Header.Del("X-Forwarded-For")
		return host
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if candidate := strings.TrimSpace(parts[len(parts)-1]); net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	return host
}

// tierLimit enforces one rate tier keyed by client IP. A non-nil bypass lets
// a request skip this tier only; outer tiers still count it.
func (rt *Router) tierLimit(tier string, bypass func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if bypass != nil && bypass(req) {
				next.ServeHTTP(w, req)
				return
			}

			ip := getClientIP(req.Context())
			res := rt.limiter.Check(ip, tier)
			if !res.Allowed {
				rt.logger.Security(req.Context(), "rate limit exceeded",
					"tier", tier, "ip", ip, "path", req.URL.Path)
				seconds := int(math.Ceil(res.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				rt.writeError(w, req, common.ErrorRateLimited)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// hasBearerToken reports whether the Authorization header is well formed.
// Used to lift already-authenticated traffic out of the anti-brute-force
// tier; token verification still happens in authMiddleware.
func hasBearerToken(req *http.Request) bool {
	return bearerRe.MatchString(req.Header.Get(common.AuthorizationHeaderName))
}

func (rt *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m := bearerRe.FindStringSubmatch(req.Header.Get(common.AuthorizationHeaderName))
		if m == nil {
			rt.writeError(w, req, common.ErrorUnauthorized)
			return
		}

		identity, err := rt.tokens.Verify(m[1])
		if err != nil {
			rt.logger.Security(req.Context(), "token rejected",
				"ip", getClientIP(req.Context()),
				"token", logging.RedactToken(m[1]))
			rt.writeError(w, req, common.ErrorUnauthorized)
			return
		}

		ctx := context.WithValue(req.Context(), identityContextKey, identity)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func getClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

func getIdentity(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityContextKey).(*auth.Identity)
	return identity
}
