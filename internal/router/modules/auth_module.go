package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/container"
	handlers "github.com/mpetrenko/contacts-api/internal/interface/http"
	"github.com/mpetrenko/contacts-api/internal/interface/middleware"
)

// AuthModule registers the auth endpoints: signup, login, refresh_token,
// logout, confirm_email and the password reset flow. Logout reads its own
// bearer token so it stays outside the CurrentUser group.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Svc     *application.AuthService
}

func NewAuthModule(h *handlers.AuthHandler, svc *application.AuthService) *AuthModule {
	return &AuthModule{Handler: h, Svc: svc}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	signupLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)
	resetInitLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetConfirmLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/signup", signupLimiter, m.Handler.Signup)
	rg.POST("/auth/login", loginLimiter, m.Handler.Login)
	rg.GET("/auth/refresh_token", refreshLimiter, m.Handler.Refresh)
	rg.GET("/auth/confirm_email/:token", m.Handler.ConfirmEmail)
	rg.POST("/auth/request-reset-password", resetInitLimiter, m.Handler.RequestReset)
	rg.POST("/auth/reset-password", resetConfirmLimiter, m.Handler.ResetPassword)
	rg.POST("/auth/logout", m.Handler.Logout)
}
