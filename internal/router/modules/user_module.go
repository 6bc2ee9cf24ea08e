package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/container"
	handlers "github.com/mpetrenko/contacts-api/internal/interface/http"
	"github.com/mpetrenko/contacts-api/internal/interface/middleware"
)

// UserModule registers the current-user endpoints behind access-token auth.
type UserModule struct {
	Handler *handlers.UserHandler
	Svc     *application.AuthService
}

func NewUserModule(h *handlers.UserHandler, svc *application.AuthService) *UserModule {
	return &UserModule{Handler: h, Svc: svc}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	perUser := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUser(), nil)
	avatarLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByUser(), nil)

	users := rg.Group("/users")
	users.Use(middleware.CurrentUser(m.Svc))
	{
		users.GET("/me", perUser, m.Handler.Me)
		users.PATCH("/avatar", avatarLimiter, m.Handler.UpdateAvatar)
	}
}
