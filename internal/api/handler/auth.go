package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/api/middleware"
	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
)

// AuthHandler handles authentication-related HTTP requests. It issues admin
// tokens at login and validates every Bearer token presented to the API;
// tester tokens carry the external identity id as subject and are signed
// with the same secret by the identity integration.
type AuthHandler struct {
	config *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	if h.config.Admin == nil || !h.config.Admin.Enabled {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Admin endpoints are not enabled",
		})
		return
	}

	// Same response for bad username and bad password
	if req.Username != h.config.Admin.Username {
		logger.Warn("Invalid login attempt", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Invalid username or password",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.config.Admin.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("Invalid login attempt", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Invalid username or password",
		})
		return
	}

	expirationHours := h.config.Admin.TokenExpiration
	if expirationHours <= 0 {
		expirationHours = 24
	}
	expiresAt := time.Now().Add(time.Duration(expirationHours) * time.Hour)

	claims := &jwt.RegisteredClaims{
		Subject:   req.Username,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    consts.ServiceName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.config.Admin.JWTSecret))
	if err != nil {
		logger.Error("Failed to generate JWT token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    errors.ErrCodeInternal,
			"message": "Failed to generate token",
		})
		return
	}

	logger.Info("Admin logged in", zap.String("username", req.Username))

	c.JSON(http.StatusOK, LoginResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	subject := middleware.Subject(c)
	if subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Not authenticated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject": subject,
		"isAdmin": h.IsAdmin(subject),
	})
}

// ValidateToken validates a JWT token and returns its subject.
// Implements middleware.TokenValidator.
func (h *AuthHandler) ValidateToken(tokenString string) (string, error) {
	if h.config.Admin == nil {
		return "", fmt.Errorf("admin configuration not available")
	}

	jwtSecret := h.config.Admin.JWTSecret
	if jwtSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.Subject, nil
}

// IsAdmin reports whether the subject is the configured admin username
func (h *AuthHandler) IsAdmin(subject string) bool {
	return h.config.Admin != nil && h.config.Admin.Enabled && subject == h.config.Admin.Username
}

// RequireAdmin returns a middleware that rejects non-admin subjects.
// It runs after JWTAuth in the chain.
func (h *AuthHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.IsAdmin(middleware.Subject(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    errors.ErrCodeForbidden,
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}
