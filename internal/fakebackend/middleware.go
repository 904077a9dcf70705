package fakebackend

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/auth"
)

// ContextKeyUsername is the context key for the authenticated operator.
const ContextKeyUsername = "username"

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Envelope is the success envelope used by command endpoints.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(cfg *auth.JWTConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, reason := bearerClaims(cfg, c.GetHeader("Authorization"))
		if claims == nil {
			logger.Debug().Str("reason", reason).Msg("request rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: reason})
			return
		}

		c.Set(ContextKeyUsername, claims.Username)
		c.Next()
	}
}

// requireAuth guards a plain net/http handler the way AuthMiddleware guards
// gin routes. A nil cfg disables the check.
func requireAuth(cfg *auth.JWTConfig, logger *zerolog.Logger, next http.HandlerFunc) http.HandlerFunc {
	if cfg == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if claims, reason := bearerClaims(cfg, r.Header.Get("Authorization")); claims == nil {
			logger.Debug().Str("reason", reason).Msg("request rejected")
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: reason})
			return
		}
		next(w, r)
	}
}

func bearerClaims(cfg *auth.JWTConfig, header string) (*auth.Claims, string) {
	if header == "" {
		return nil, "missing authorization header"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "invalid authorization header format"
	}
	claims, err := auth.ValidateToken(cfg, parts[1])
	if err != nil {
		return nil, "invalid token"
	}
	return claims, ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("fake backend request")
	}
}
