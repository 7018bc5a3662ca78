package api

import (
	"net/http"
	"time"

	"github.com/fablekeep/fablekeep/pkg/httputil"
	"github.com/fablekeep/fablekeep/pkg/middleware"
	"github.com/fablekeep/fablekeep/pkg/token"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func pairResponse(pair *token.Pair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken.Token,
		TokenType:    "Bearer",
		ExpiresAt:    pair.RefreshToken.ExpiresAt,
	}
}

// login handles POST /auth/login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") || !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	pair, err := s.tokens.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	httputil.WriteSuccess(w, pairResponse(pair))
}

// refresh handles POST /auth/refresh. The presented refresh token is
// exchanged for a fresh pair; the old one is dead afterwards whether or not
// the exchange won a concurrent race.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RefreshToken, "refresh_token") {
		return
	}

	pair, err := s.tokens.Rotate(r.Context(), req.RefreshToken, r.UserAgent())
	s.recordTokenOp("rotate", err)
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	httputil.WriteSuccess(w, pairResponse(pair))
}

// logout handles POST /auth/logout: revokes the presented refresh token.
// Revocation is idempotent, so a replayed logout still succeeds.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.RefreshToken, "refresh_token") {
		return
	}

	err := s.tokens.Revoke(r.Context(), req.RefreshToken)
	s.recordTokenOp("revoke", err)
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// revokeAllSessions handles DELETE /auth/sessions: revokes every refresh
// token the authenticated subject holds, across devices.
func (s *Server) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetSubject(r)

	err := s.tokens.RevokeAll(r.Context(), subject.ID)
	s.recordTokenOp("revoke_all", err)
	if err != nil {
		httputil.WriteFault(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
