package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formloom/formloom/internal/auth"
	"github.com/formloom/formloom/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// RegisterAuthRoutes registers account registration and login. Both sit
// outside the auth middleware; field-shape validation (email format, password
// strength) is the upstream schema layer's job, so only presence is checked.
//
// POST /api/auth/register
// POST /api/auth/login
func RegisterAuthRoutes(r gin.IRoutes, users *auth.UserService) {
	r.POST("/auth/register", func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.Email == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
			return
		}

		user, token, err := users.Register(c.Request.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
	})

	r.POST("/auth/login", func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if req.Email == "" || req.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
			return
		}

		user, token, err := users.Login(c.Request.Context(), req.Email, req.Password)
		if errors.Is(err, domain.ErrForbidden) {
			// Bad email and bad password render identically.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
	})
}

// RegisterMeRoute returns the authenticated user's profile.
//
// GET /api/me
func RegisterMeRoute(r gin.IRoutes, users *auth.UserService) {
	r.GET("/me", func(c *gin.Context) {
		user, err := users.Get(c.Request.Context(), auth.UserID(c))
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	})
}
