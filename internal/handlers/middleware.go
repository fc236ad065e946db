package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/etraincon/learning-service/internal/sessions"
	"github.com/etraincon/learning-service/internal/utils"
)

const headerTestUserID = "X-User-Id"

// SetupMiddleware installs the middleware shared by every route.
func SetupMiddleware(router *gin.Engine, logger utils.Logger, allowedOrigins []string) {
	router.Use(RequestIDMiddleware())

	// Preflight requests are answered here, before routing and logging.
	router.Use(CORSMiddleware(allowedOrigins))

	router.Use(gin.Recovery())

	router.Use(utils.ContextLogger(logger))

	router.Use(utils.LoggerMiddleware(logger))

	router.Use(SecurityMiddleware())
}

// SecurityMiddleware adds security headers
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		c.Next()
	}
}

// RequestIDMiddleware keeps a caller-supplied X-Request-ID or generates one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(utils.RequestIDKey, requestID)
		c.Next()
	}
}

// CORSMiddleware reflects allow-listed origins and enables credentials for them.
// Other origins get no CORS headers at all.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-User-Id")
			c.Header("Access-Control-Max-Age", "43200")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware resolves the caller from the session cookie.
type AuthMiddleware struct {
	sessions            *sessions.Manager
	allowIdentityHeader bool
}

func NewAuthMiddleware(manager *sessions.Manager, allowIdentityHeader bool) *AuthMiddleware {
	return &AuthMiddleware{sessions: manager, allowIdentityHeader: allowIdentityHeader}
}

// RequireUser aborts with 401 unless the request carries a session. When the test
// identity header is enabled, a positive X-User-Id is accepted instead.
func (m *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := m.sessions.UserID(c.Request); err == nil {
			c.Set(contextUserID, id)
			c.Next()
			return
		}

		if m.allowIdentityHeader {
			if raw := c.GetHeader(headerTestUserID); raw != "" {
				if id, err := strconv.ParseUint(raw, 10, 64); err == nil && id > 0 {
					c.Set(contextUserID, uint(id))
					c.Next()
					return
				}
			}
		}

		respondError(c, http.StatusUnauthorized, CodeUnauthenticated, "Not authenticated")
	}
}
