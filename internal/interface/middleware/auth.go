package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/infrastructure/rediscache"
	"github.com/mpetrenko/contacts-api/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUserEmailKey = "userEmail"
	ctxSnapshotKey  = "userSnapshot"
)

// CurrentUser resolves the bearer access token into a user snapshot via the
// auth service (cache first, store on a miss) and injects it into the Gin
// context. Every protected route runs through here.
func CurrentUser(svc *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortError(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		snap, err := svc.ResolveCurrentUser(c.Request.Context(), token)
		if err != nil {
			response.AbortError(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxUserIDKey, snap.ID)
		c.Set(CtxUserEmailKey, snap.Email)
		c.Set(ctxSnapshotKey, snap)
		c.Next()
	}
}

// SnapshotFrom returns the snapshot stored by CurrentUser, if any.
func SnapshotFrom(c *gin.Context) (*rediscache.UserSnapshot, bool) {
	v, ok := c.Get(ctxSnapshotKey)
	if !ok {
		return nil, false
	}
	snap, ok := v.(*rediscache.UserSnapshot)
	return snap, ok
}

// UserIDFrom returns the authenticated user's id set by CurrentUser.
func UserIDFrom(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
