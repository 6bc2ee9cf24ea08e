package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/pkg/response"
	"github.com/mpetrenko/contacts-api/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error(c, http.StatusConflict, "account already exists", nil)
			return
		}
		h.Logger.WithError(err).Error("signup failed")
		response.Error(c, http.StatusInternalServerError, "signup failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"created_at": u.CreatedAt,
	}, "account created, confirmation email sent")
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	pair, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		case errors.Is(err, application.ErrEmailNotVerified):
			response.Error(c, http.StatusUnauthorized, "email not verified", nil)
		default:
			h.Logger.WithError(err).Error("login failed")
			response.Error(c, http.StatusServiceUnavailable, "login unavailable", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}, "login successful")
}

// Refresh GET /api/auth/refresh_token (bearer refresh token)
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Svc.Refresh(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, application.ErrInvalidToken) {
			response.Error(c, http.StatusUnauthorized, "invalid refresh token", nil)
			return
		}
		h.Logger.WithError(err).Error("refresh failed")
		response.Error(c, http.StatusServiceUnavailable, "refresh unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	}, "token refreshed")
}

// Logout POST /api/auth/logout (bearer access token)
func (h *AuthHandler) Logout(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "missing access token", nil)
		return
	}
	if err := h.Svc.Logout(c.Request.Context(), token); err != nil {
		if errors.Is(err, application.ErrInvalidToken) {
			response.Error(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}
		h.Logger.WithError(err).Error("logout failed")
		response.Error(c, http.StatusServiceUnavailable, "logout unavailable", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// ConfirmEmail GET /api/auth/confirm_email/:token
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	msg, err := h.Svc.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidToken):
			response.Error(c, http.StatusBadRequest, "verification error", nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "user not found", nil)
		default:
			h.Logger.WithError(err).Error("confirm email failed")
			response.Error(c, http.StatusServiceUnavailable, "confirmation unavailable", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, nil, msg)
}

type requestResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RequestReset POST /api/auth/request-reset-password
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req requestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("reset request failed")
		response.Error(c, http.StatusServiceUnavailable, "reset unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, nil, "password reset link sent")
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), req.Email, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, application.ErrInvalidResetTicket) {
			response.Error(c, http.StatusBadRequest, "invalid or expired token", nil)
			return
		}
		h.Logger.WithError(err).Error("password reset failed")
		response.Error(c, http.StatusServiceUnavailable, "reset unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, nil, "password updated")
}
