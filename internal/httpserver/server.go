package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formloom/formloom/internal/auth"
	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/formid"
	"github.com/formloom/formloom/internal/forms"
	"github.com/formloom/formloom/internal/handlers"
	"github.com/formloom/formloom/internal/store"
	"github.com/formloom/formloom/internal/submissions"
)

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready, /s/:formId, /api/auth/*
// Authenticated: /api/me, /api/forms and everything under it
func NewRouter(cfg config.Config, st *store.PostgresStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	userSvc := auth.NewUserService(st, cfg.JWTSecret, cfg.TokenTTL)
	formSvc := forms.NewService(st, formid.NewAllocator(st))
	subSvc := submissions.NewService(st)

	// Public ingestion path: no auth, no ownership checks.
	handlers.RegisterPublicRoutes(r, subSvc)

	api := r.Group("/api")
	handlers.RegisterAuthRoutes(api, userSvc)

	// Everything else under /api requires a valid bearer token.
	authed := api.Group("")
	authed.Use(auth.Middleware(cfg.JWTSecret))

	handlers.RegisterMeRoute(authed, userSvc)
	handlers.RegisterFormRoutes(authed, formSvc, cfg.BaseURL)
	handlers.RegisterSubmissionRoutes(authed, subSvc)

	return r
}
