package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formloom/formloom/internal/auth"
	"github.com/formloom/formloom/internal/domain"
	"github.com/formloom/formloom/internal/export"
	"github.com/formloom/formloom/internal/models"
	"github.com/formloom/formloom/internal/submissions"
)

// RegisterPublicRoutes registers the unauthenticated ingestion endpoint.
//
// POST /s/:formId
// - Accepts JSON or form-encoded bodies; payload contents go in verbatim
// - Unknown and inactive forms both render as 404 so submitters cannot tell
//   a deactivated endpoint from one that never existed
// - Redirects with 303 when the form has a redirect URL configured
func RegisterPublicRoutes(r gin.IRoutes, svc *submissions.Service) {
	r.POST("/s/:formId", func(c *gin.Context) {
		formID := c.Param("formId")

		data, ok := parseSubmissionBody(c)
		if !ok {
			return
		}

		sub, form, err := svc.Ingest(c.Request.Context(), submissions.IngestInput{
			FormID:    formID,
			Data:      data,
			Origin:    c.GetHeader("Origin"),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.GetHeader("Referer"),
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrFormInactive):
				log.Printf("submission rejected for %q: %v", formID, err)
				c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
			case errors.Is(err, domain.ErrOriginNotAllowed):
				c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
			default:
				log.Printf("submission failed for %q: %v", formID, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		if form.RedirectURL != "" {
			c.Redirect(http.StatusSeeOther, form.RedirectURL)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":      "submission received",
			"submissionId": sub.ID,
		})
	})
}

// parseSubmissionBody accepts the two encodings HTML forms and fetch clients
// actually send. Returns ok=false with a 400 already written on bad JSON.
func parseSubmissionBody(c *gin.Context) (map[string]any, bool) {
	ct := c.ContentType()
	if strings.Contains(ct, "json") {
		data := map[string]any{}
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return nil, false
		}
		return data, true
	}

	// Plain <form> posts: urlencoded or multipart.
	if err := c.Request.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
		if err := c.Request.ParseForm(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
			return nil, false
		}
	}
	data := map[string]any{}
	for key, vals := range c.Request.PostForm {
		if len(vals) == 1 {
			data[key] = vals[0]
		} else {
			data[key] = vals
		}
	}
	return data, true
}

// RegisterSubmissionRoutes registers the owner-facing query, deletion and
// export endpoints. All of them run behind the auth middleware.
//
// GET    /api/forms/:formId/submissions?page=&limit=&order=&search=&startDate=&endDate=
// GET    /api/forms/:formId/submissions/:submissionId
// DELETE /api/forms/:formId/submissions/:submissionId
// GET    /api/forms/:formId/export?format=csv|json&startDate=&endDate=
func RegisterSubmissionRoutes(r gin.IRoutes, svc *submissions.Service) {
	r.GET("/forms/:formId/submissions", func(c *gin.Context) {
		start, ok := queryTime(c, "startDate")
		if !ok {
			return
		}
		end, ok := queryTime(c, "endDate")
		if !ok {
			return
		}

		page, err := svc.List(c.Request.Context(), c.Param("formId"), auth.UserID(c), models.SubmissionQuery{
			Page:      queryInt(c, "page", 1),
			Limit:     queryInt(c, "limit", 20),
			Order:     c.Query("order"),
			Search:    c.Query("search"),
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	})

	r.GET("/forms/:formId/submissions/:submissionId", func(c *gin.Context) {
		sub, err := svc.Get(c.Request.Context(), c.Param("formId"), c.Param("submissionId"), auth.UserID(c))
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, sub)
	})

	r.DELETE("/forms/:formId/submissions/:submissionId", func(c *gin.Context) {
		err := svc.Delete(c.Request.Context(), c.Param("formId"), c.Param("submissionId"), auth.UserID(c))
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "submission deleted"})
	})

	r.GET("/forms/:formId/export", func(c *gin.Context) {
		formID := c.Param("formId")

		format := c.DefaultQuery("format", export.FormatCSV)
		if format != export.FormatCSV && format != export.FormatJSON {
			c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or json"})
			return
		}
		start, ok := queryTime(c, "startDate")
		if !ok {
			return
		}
		end, ok := queryTime(c, "endDate")
		if !ok {
			return
		}

		subs, err := svc.ForExport(c.Request.Context(), formID, auth.UserID(c), start, end)
		if err != nil {
			writeDomainError(c, err)
			return
		}

		if format == export.FormatJSON {
			out, err := export.JSON(subs)
			if err != nil {
				writeDomainError(c, err)
				return
			}
			c.Header("Content-Disposition", `attachment; filename="submissions-`+formID+`.json"`)
			c.Data(http.StatusOK, "application/json", out)
			return
		}

		c.Header("Content-Disposition", `attachment; filename="submissions-`+formID+`.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", export.CSV(subs))
	})
}
