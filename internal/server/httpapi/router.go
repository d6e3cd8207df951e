// Package httpapi is the HTTP orchestrator: it wires the sanitizer, rate
// tiers, token verification and upload validation in front of the business
// handlers, in that order.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/ratelimit"
	"github.com/dmitrijs2005/blogapi/internal/server/auth"
	"github.com/dmitrijs2005/blogapi/internal/server/config"
	"github.com/dmitrijs2005/blogapi/internal/server/covers"
	"github.com/dmitrijs2005/blogapi/internal/server/services"
)

type Router struct {
	config      *config.Config
	logger      logging.Logger
	tokens      *auth.Service
	credentials *services.CredentialService
	uploads     *services.UploadService
	limiter     *ratelimit.Limiter

	// coverRoot, when non-empty, is served read-only under the public
	// covers prefix. Empty for the S3 store.
	coverRoot string

	started time.Time
}

func NewRouter(cfg *config.Config, logger logging.Logger, tokens *auth.Service,
	credentials *services.CredentialService, uploads *services.UploadService,
	limiter *ratelimit.Limiter, coverRoot string) http.Handler {

	rt := &Router{
		config:      cfg,
		logger:      logger,
		tokens:      tokens,
		credentials: credentials,
		uploads:     uploads,
		limiter:     limiter,
		coverRoot:   coverRoot,
		started:     time.Now(),
	}

	mux := chi.NewRouter()

	mux.Use(rt.requestID)
	mux.Use(rt.securityHeaders)
	mux.Use(rt.clientIP)
	mux.Use(rt.tierLimit(ratelimit.TierGeneral, nil))

	mux.Get("/health", rt.handleHealth)

	mux.Route("/api/auth", func(g chi.Router) {
		g.With(rt.tierLimit(ratelimit.TierAuth, nil), rt.tierLimit(ratelimit.TierCreate, nil)).
			Post("/signup", rt.handleSignup)
		g.With(rt.tierLimit(ratelimit.TierAuth, nil)).
			Post("/signin", rt.handleSignin)
		// a well-formed bearer token skips the brute-force tier; the
		// token itself is still fully verified
		g.With(rt.tierLimit(ratelimit.TierAuth, hasBearerToken), rt.authMiddleware).
			Get("/validate", rt.handleValidate)
	})

	mux.Route("/api/admin", func(g chi.Router) {
		g.Use(rt.authMiddleware)
		g.With(rt.tierLimit(ratelimit.TierCreate, nil)).
			Post("/covers", rt.handleUploadCover)
	})

	if rt.coverRoot != "" {
		fileServer := http.StripPrefix(covers.PublicPrefix,
			http.FileServer(http.Dir(rt.coverRoot)))
		mux.Get(covers.PublicPrefix+"/*", func(w http.ResponseWriter, req *http.Request) {
			fileServer.ServeHTTP(w, req)
		})
	}

	return mux
}
