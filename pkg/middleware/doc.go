// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Overview
//
// This package implements request processing middleware: Bearer token
// authentication, in-memory rate limiting and a Redis-backed login throttle.
//
// # Middleware Components
//
// AuthMiddleware: access token authentication
//
//	auth := middleware.NewAuthMiddleware(tokenService, false)
//	router.Use(auth.Handler)
//	// Verifies the Bearer token and adds the subject to the request context.
//
// An optional-mode instance lets anonymous requests through unauthenticated,
// which the list and read endpoints rely on. An invalid token is rejected
// even in optional mode.
//
// RateLimitMiddleware: in-memory per-subject and per-IP limits
//
//	rl := middleware.NewRateLimitMiddleware()
//	router.Use(rl.Handler)
//
// LoginThrottle: Redis-backed attempt budget for credential endpoints
//
//	throttle := middleware.NewLoginThrottle(redisClient)
//	loginRoute.Handler(throttle.Handler(loginHandler))
//
// # Rate Limiting
//
// Anonymous: 100 req/min, 10 burst
// Per-Subject: 1000 req/min, 50 burst
// Login attempts: 10/min per IP, shared across instances
//
// # Related Packages
//
//   - pkg/token: access token verification
//   - pkg/contextkeys: context key definitions
package middleware
