package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/interface/middleware"
	"github.com/mpetrenko/contacts-api/pkg/response"
)

type UserHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.AuthService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// Me GET /api/users/me — returns the resolved snapshot, no extra store trip.
func (h *UserHandler) Me(c *gin.Context) {
	snap, ok := middleware.SnapshotFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	response.Success(c, http.StatusOK, snap, "current user")
}

// UpdateAvatar PATCH /api/users/avatar — multipart image upload to GCS.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	uid, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unreadable file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error(c, http.StatusBadRequest, "file must be an image", nil)
		return
	}

	url, err := h.Svc.UpdateAvatar(c.Request.Context(), uid, f, fh.Filename, contentType)
	if err != nil {
		h.Logger.WithError(err).WithField("user_id", uid).Error("avatar upload failed")
		response.Error(c, http.StatusInternalServerError, "avatar upload failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar": url}, "avatar updated")
}
