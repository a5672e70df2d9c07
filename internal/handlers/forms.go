package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formloom/formloom/internal/auth"
	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/models"
)

type createFormRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	RedirectURL       string   `json:"redirectUrl"`
	NotificationEmail string   `json:"notificationEmail"`
	AllowedOrigins    []string `json:"allowedOrigins"`
}

// formResponse decorates a form with the public URL submitters post to.
type formResponse struct {
	models.Form
	Endpoint string `json:"endpoint"`
}

type formDetailResponse struct {
	models.FormDetail
	Endpoint string `json:"endpoint"`
}

// RegisterFormRoutes registers the owner-facing form CRUD endpoints. All of
// them run behind the auth middleware.
//
// POST   /api/forms
// GET    /api/forms?page=&limit=&sortBy=&order=
// GET    /api/forms/:formId
// PATCH  /api/forms/:formId
// DELETE /api/forms/:formId
func RegisterFormRoutes(r gin.IRoutes, svc *forms.Service, baseURL string) {
	endpoint := func(id string) string { return baseURL + "/s/" + id }

	r.POST("/forms", func(c *gin.Context) {
		var req createFormRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
			return
		}

		form, err := svc.Create(c.Request.Context(), models.FormCreate{
			UserID:            auth.UserID(c),
			Name:              req.Name,
			Description:       req.Description,
			RedirectURL:       req.RedirectURL,
			NotificationEmail: req.NotificationEmail,
			AllowedOrigins:    req.AllowedOrigins,
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, formResponse{Form: form, Endpoint: endpoint(form.ID)})
	})

	r.GET("/forms", func(c *gin.Context) {
		page, err := svc.List(c.Request.Context(), auth.UserID(c), models.FormListQuery{
			Page:   queryInt(c, "page", 1),
			Limit:  queryInt(c, "limit", 10),
			SortBy: c.Query("sortBy"),
			Order:  c.Query("order"),
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}

		decorated := make([]formResponse, 0, len(page.Forms))
		for _, f := range page.Forms {
			decorated = append(decorated, formResponse{Form: f, Endpoint: endpoint(f.ID)})
		}
		c.JSON(http.StatusOK, gin.H{"forms": decorated, "pagination": page.Pagination})
	})

	r.GET("/forms/:formId", func(c *gin.Context) {
		detail, err := svc.Get(c.Request.Context(), c.Param("formId"), auth.UserID(c))
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, formDetailResponse{FormDetail: detail, Endpoint: endpoint(detail.ID)})
	})

	r.PATCH("/forms/:formId", func(c *gin.Context) {
		var patch models.FormUpdate
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if patch.Name.Set && (!patch.Name.Valid || patch.Name.Value == "") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be cleared"})
			return
		}

		form, err := svc.Update(c.Request.Context(), c.Param("formId"), auth.UserID(c), patch)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, formResponse{Form: form, Endpoint: endpoint(form.ID)})
	})

	r.DELETE("/forms/:formId", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("formId"), auth.UserID(c)); err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "form and all submissions deleted"})
	})
}
