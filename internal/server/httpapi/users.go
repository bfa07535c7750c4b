package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/cartkeeper/internal/apperr"
	"github.com/dmitrijs2005/cartkeeper/internal/common"
	"github.com/dmitrijs2005/cartkeeper/internal/server/models"
	"github.com/dmitrijs2005/cartkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	MsgInvalidBody         = "invalid request body"
	MsgUnauthorizedRequest = services.MsgUnauthorizedRequest
	MsgInvalidAccessToken  = "Invalid access token"

	MsgRegistered     = "User registered successfully"
	MsgLoggedIn       = "User logged in successfully"
	MsgLoggedOut      = "User logged out successfully"
	MsgRefreshed      = "Access token refreshed"
	MsgUserFetched    = "current user fetched successfully"
	MsgCartSaved      = "Cart saved to purchase history"
	MsgHistoryFetched = "Purchase history fetched successfully"
)

// auth event labels
const (
	eventRegister = "register"
	eventLogin    = "login"
	eventRefresh  = "refresh"
	eventLogout   = "logout"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, MaxBodyBytes, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	s.metrics.RecordAuth(eventRegister, err == nil)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	respond(w, http.StatusCreated, user, MsgRegistered)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, MaxBodyBytes, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	res, err := s.users.Login(r.Context(), req.Email, req.Password)
	s.metrics.RecordAuth(eventLogin, err == nil)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	setSessionCookies(w, res.Tokens)
	respond(w, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, MsgLoggedIn)
}

// handleRefresh takes the token from the refreshToken cookie, falling back
// to the JSON body. An empty body is fine when the cookie is present.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var presented string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		presented = c.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := decodeOptionalJSON(w, r, MaxBodyBytes, &req); err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
		presented = req.RefreshToken
	}

	pair, err := s.users.Refresh(r.Context(), presented)
	s.metrics.RecordAuth(eventRefresh, err == nil)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	setSessionCookies(w, pair)
	respond(w, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, MsgRefreshed)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.writeError(r.Context(), w, apperr.Unauthorized(MsgUnauthorizedRequest))
		return
	}

	err := s.users.Logout(r.Context(), userID)
	s.metrics.RecordAuth(eventLogout, err == nil)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	clearSessionCookies(w)
	respond(w, http.StatusOK, nil, MsgLoggedOut)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetCurrentUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	respond(w, http.StatusOK, user, MsgUserFetched)
}
