package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/container"
	handlers "github.com/mpetrenko/contacts-api/internal/interface/http"
	"github.com/mpetrenko/contacts-api/internal/interface/middleware"
)

// ContactModule registers the contact book endpoints. Everything here is
// scoped to the authenticated user resolved by CurrentUser.
type ContactModule struct {
	Handler *handlers.ContactHandler
	Svc     *application.AuthService
}

func NewContactModule(h *handlers.ContactHandler, svc *application.AuthService) *ContactModule {
	return &ContactModule{Handler: h, Svc: svc}
}

func (m *ContactModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	perUser := middleware.RateLimit(rdb, 240, time.Minute, middleware.KeyByUser(), nil)

	contacts := rg.Group("/contacts")
	contacts.Use(middleware.CurrentUser(m.Svc), perUser)
	{
		contacts.POST("", m.Handler.Create)
		contacts.GET("", m.Handler.List)
		contacts.GET("/search", m.Handler.Search)
		contacts.GET("/birthdays", m.Handler.Birthdays)
		contacts.GET("/:id", m.Handler.Get)
		contacts.PUT("/:id", m.Handler.Update)
		contacts.DELETE("/:id", m.Handler.Delete)
	}
}
