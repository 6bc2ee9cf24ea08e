package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mpetrenko/contacts-api/internal/application"
	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	"github.com/mpetrenko/contacts-api/internal/interface/middleware"
	"github.com/mpetrenko/contacts-api/pkg/response"
	"github.com/mpetrenko/contacts-api/pkg/validation"
)

type ContactHandler struct {
	Svc    *application.ContactService
	Logger *logrus.Logger
}

func NewContactHandler(svc *application.ContactService, logger *logrus.Logger) *ContactHandler {
	return &ContactHandler{Svc: svc, Logger: logger}
}

type contactRequest struct {
	FirstName      string `json:"first_name" binding:"required,max=50"`
	LastName       string `json:"last_name" binding:"required,max=50"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required,max=20"`
	Birthday       string `json:"birthday" binding:"required"` // YYYY-MM-DD
	AdditionalInfo string `json:"additional_info" binding:"max=250"`
}

func (r contactRequest) toInput() (application.ContactInput, error) {
	bday, err := time.Parse("2006-01-02", r.Birthday)
	if err != nil {
		return application.ContactInput{}, err
	}
	return application.ContactInput{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		Birthday:       bday,
		AdditionalInfo: r.AdditionalInfo,
	}, nil
}

func contactJSON(c *entity.Contact) gin.H {
	return gin.H{
		"id":              c.ID,
		"first_name":      c.FirstName,
		"last_name":       c.LastName,
		"email":           c.Email,
		"phone":           c.Phone,
		"birthday":        c.Birthday.Format("2006-01-02"),
		"additional_info": c.AdditionalInfo,
	}
}

func contactsJSON(cs []entity.Contact) []gin.H {
	out := make([]gin.H, 0, len(cs))
	for i := range cs {
		out = append(out, contactJSON(&cs[i]))
	}
	return out
}

// Create POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"birthday": "must be YYYY-MM-DD"})
		return
	}
	contact, err := h.Svc.Create(c.Request.Context(), uid, in)
	if err != nil {
		h.Logger.WithError(err).Error("create contact failed")
		response.Error(c, http.StatusInternalServerError, "create contact failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, contactJSON(contact), "contact created")
}

// List GET /api/contacts
func (h *ContactHandler) List(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	contacts, err := h.Svc.List(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).Error("list contacts failed")
		response.Error(c, http.StatusInternalServerError, "list contacts failed", nil)
		return
	}
	response.Success(c, http.StatusOK, contactsJSON(contacts), "contacts")
}

// Get GET /api/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid contact id", nil)
		return
	}
	contact, err := h.Svc.Get(c.Request.Context(), uid, id)
	if err != nil {
		if errors.Is(err, application.ErrContactNotFound) {
			response.Error(c, http.StatusNotFound, "contact not found", nil)
			return
		}
		h.Logger.WithError(err).Error("get contact failed")
		response.Error(c, http.StatusInternalServerError, "get contact failed", nil)
		return
	}
	response.Success(c, http.StatusOK, contactJSON(contact), "contact")
}

// Update PUT /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid contact id", nil)
		return
	}
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"birthday": "must be YYYY-MM-DD"})
		return
	}
	contact, err := h.Svc.Update(c.Request.Context(), uid, id, in)
	if err != nil {
		if errors.Is(err, application.ErrContactNotFound) {
			response.Error(c, http.StatusNotFound, "contact not found", nil)
			return
		}
		h.Logger.WithError(err).Error("update contact failed")
		response.Error(c, http.StatusInternalServerError, "update contact failed", nil)
		return
	}
	response.Success(c, http.StatusOK, contactJSON(contact), "contact updated")
}

// Delete DELETE /api/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid contact id", nil)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), uid, id); err != nil {
		if errors.Is(err, application.ErrContactNotFound) {
			response.Error(c, http.StatusNotFound, "contact not found", nil)
			return
		}
		h.Logger.WithError(err).Error("delete contact failed")
		response.Error(c, http.StatusInternalServerError, "delete contact failed", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search GET /api/contacts/search?q=
func (h *ContactHandler) Search(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "q is required", nil)
		return
	}
	contacts, err := h.Svc.Search(c.Request.Context(), uid, q)
	if err != nil {
		h.Logger.WithError(err).Error("search contacts failed")
		response.Error(c, http.StatusInternalServerError, "search contacts failed", nil)
		return
	}
	response.Success(c, http.StatusOK, contactsJSON(contacts), "search results")
}

// Birthdays GET /api/contacts/birthdays — next 7 days
func (h *ContactHandler) Birthdays(c *gin.Context) {
	uid, _ := middleware.UserIDFrom(c)
	contacts, err := h.Svc.UpcomingBirthdays(c.Request.Context(), uid)
	if err != nil {
		h.Logger.WithError(err).Error("birthdays lookup failed")
		response.Error(c, http.StatusInternalServerError, "birthdays lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, contactsJSON(contacts), "upcoming birthdays")
}
