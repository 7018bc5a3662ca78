package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/fablekeep/fablekeep/pkg/authz"
	"github.com/fablekeep/fablekeep/pkg/httputil"
	"github.com/fablekeep/fablekeep/pkg/middleware"
	"github.com/fablekeep/fablekeep/pkg/observability"
	"github.com/fablekeep/fablekeep/pkg/storage"
	"github.com/fablekeep/fablekeep/pkg/token"
)

// Options carries the server's collaborators. Metrics and Redis are
// optional; a nil Redis disables the distributed login throttle.
type Options struct {
	Store   storage.Store
	Tokens  *token.Service
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Redis   *redis.Client
}

// Server is the HTTP surface of the engine: credential endpoints and the
// character endpoints that integrate the policy gate, security filter and
// masker.
type Server struct {
	router   *mux.Router
	store    storage.Store
	tokens   *token.Service
	gate     *authz.Gate
	filters  *authz.FilterBuilder
	logger   *observability.Logger
	metrics  *observability.Metrics
	throttle *middleware.LoginThrottle
}

// NewServer creates an API server and wires its routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	resolver := authz.NewResolver(opts.Store)
	metrics := opts.Metrics
	resolver.OnStorageError(func(resource authz.Resource, err error) {
		logger.WithError(err).WithField("resource", string(resource)).Warn("ownership resolution failed, treating instance as orphaned")
		if metrics != nil {
			metrics.ResolverFailuresTotal.WithLabelValues(string(resource)).Inc()
		}
	})

	s := &Server{
		router:   mux.NewRouter(),
		store:    opts.Store,
		tokens:   opts.Tokens,
		gate:     authz.NewGate(authz.NewEngine(), resolver),
		filters:  authz.NewFilterBuilder(),
		logger:   logger,
		metrics:  metrics,
		throttle: middleware.NewLoginThrottle(opts.Redis),
	}
	if metrics != nil {
		s.throttle.OnLimited = func(scope string) {
			metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
		}
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures middleware and all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.LoggingMiddleware)
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	s.router.Use(httputil.RecoveryMiddleware)

	// Every route sees the same optional authenticator: public reads pass
	// through anonymous, a presented-but-bad token is still rejected.
	auth := middleware.NewAuthMiddleware(s.tokens, true)
	s.router.Use(auth.Handler)

	// Per-subject and per-IP request budgets, after authentication so a
	// valid subject is limited by identity rather than address.
	rl := middleware.NewRateLimitMiddleware()
	if s.metrics != nil {
		rl.OnLimited = func(scope string) {
			s.metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
		}
	}
	s.router.Use(rl.Handler)

	// Credential lifecycle
	s.router.Handle("/auth/login", s.throttle.Handler(http.HandlerFunc(s.login))).Methods("POST")
	s.router.HandleFunc("/auth/refresh", s.refresh).Methods("POST")
	s.router.Handle("/auth/logout", middleware.RequireAuthenticated(http.HandlerFunc(s.logout))).Methods("POST")
	s.router.Handle("/auth/sessions", middleware.RequireAuthenticated(http.HandlerFunc(s.revokeAllSessions))).Methods("DELETE")

	// Characters
	s.router.HandleFunc("/characters", s.listCharacters).Methods("GET")
	s.router.HandleFunc("/characters/{id}", s.getCharacter).Methods("GET")
	s.router.HandleFunc("/characters/{id}", s.updateCharacter).Methods("PUT")
	s.router.HandleFunc("/characters/{id}", s.deleteCharacter).Methods("DELETE")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// recordDecision counts a gate outcome. The label set is small and closed:
// roles, actions and resources are all closed enums.
func (s *Server) recordDecision(subject *authz.Subject, action authz.Action, resource authz.Resource, err error) {
	if s.metrics == nil {
		return
	}
	role := "anonymous"
	if subject != nil {
		role = string(subject.Role)
	}
	decision := "allow"
	if err != nil {
		decision = "deny"
	}
	s.metrics.AuthzDecisionsTotal.WithLabelValues(role, string(action), string(resource), decision).Inc()
}

func (s *Server) recordTokenOp(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.TokenOperationsTotal.WithLabelValues(operation, outcome).Inc()
}
