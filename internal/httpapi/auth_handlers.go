package httpapi

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maurya-kamminana/taskmaster/internal/auth"
	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// refreshCookie is the only place the refresh token travels. httpOnly
// keeps it out of page scripts; Strict SameSite keeps it off cross-site
// requests.
const refreshCookie = "refresh_token"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the body for register, login, and refresh. The
// refresh token is deliberately absent; it rides the cookie.
type sessionResponse struct {
	User        models.UserSummary `json:"user"`
	AccessToken string             `json:"access_token"`
}

func sessionResponseFrom(result auth.Result) sessionResponse {
	return sessionResponse{
		User: models.UserSummary{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
		},
		AccessToken: result.AccessToken,
	}
}

func (s *Server) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, token, int(s.codec.RefreshTTL().Seconds()), "/", "", true, true)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, "", -1, "/", "", true, true)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		sendError(c, http.StatusBadRequest, "Username, email, and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid email format")
		return
	}

	result, err := s.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.sendAuthError(c, err)
		return
	}

	authEvents.WithLabelValues(eventRegistered).Inc()
	s.setRefreshCookie(c, result.RefreshToken)
	sendSuccess(c, http.StatusCreated, "User registered successfully", sessionResponseFrom(result))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		sendError(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		authEvents.WithLabelValues(eventLoginFailure).Inc()
		s.sendAuthError(c, err)
		return
	}

	authEvents.WithLabelValues(eventLoginSuccess).Inc()
	s.setRefreshCookie(c, result.RefreshToken)
	sendSuccess(c, http.StatusOK, "Login successful", sessionResponseFrom(result))
}

func (s *Server) handleRefresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		sendError(c, http.StatusBadRequest, "Refresh token cookie missing")
		return
	}

	result, err := s.auth.Refresh(c.Request.Context(), raw)
	if err != nil {
		authEvents.WithLabelValues(eventRefreshFailure).Inc()
		s.sendAuthError(c, err)
		return
	}

	authEvents.WithLabelValues(eventRefreshSuccess).Inc()
	s.setRefreshCookie(c, result.RefreshToken)
	sendSuccess(c, http.StatusOK, "Token refreshed", sessionResponseFrom(result))
}

func (s *Server) handleLogout(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		sendError(c, http.StatusBadRequest, "Refresh token cookie missing")
		return
	}

	revoked, err := s.auth.Logout(c.Request.Context(), raw)
	if err != nil {
		s.sendAuthError(c, err)
		return
	}

	s.clearRefreshCookie(c)
	if !revoked {
		sendError(c, http.StatusNotFound, "Session not found")
		return
	}
	authEvents.WithLabelValues(eventLogout).Inc()
	sendSuccess(c, http.StatusOK, "Logged out", nil)
}

// handleLogoutAll revokes every live session for the caller, logging out
// all devices at once. It keys off the access token, so it works even
// when the refresh cookie on this device is already gone.
func (s *Server) handleLogoutAll(c *gin.Context) {
	revoked, err := s.auth.RevokeAllSessions(c.Request.Context(), identityFrom(c).SubjectID)
	if err != nil {
		s.sendAuthError(c, err)
		return
	}
	s.clearRefreshCookie(c)
	authEvents.WithLabelValues(eventLogout).Inc()
	sendSuccess(c, http.StatusOK, "All sessions revoked", gin.H{"revoked": revoked})
}
