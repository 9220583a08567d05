package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/services"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

// Gin context key for storing user claims.
const UserClaimsContextKey = "userClaims"

// TokenValidator is implemented by *services.JWTService.
type TokenValidator interface {
	ValidateToken(tokenString string) (*services.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Debug("AuthMiddleware: Missing Authorization header.")
			utils.ResponseWithError(c, http.StatusUnauthorized, "Authorization header required", nil)
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			log.Debug("AuthMiddleware: Invalid Authorization header format.")
			utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid Authorization header format", nil)
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			log.Debugf("AuthMiddleware: Invalid or expired JWT token: %v", err)
			utils.ResponseWithError(c, http.StatusUnauthorized, "Invalid or expired token", err.Error())
			c.Abort()
			return
		}

		c.Set(UserClaimsContextKey, claims)
		log.Debugf("AuthMiddleware: User %s authenticated.", claims.UserID.String())
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and lets
// every request through. An invalid token is treated as anonymous.
func OptionalAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := tokens.ValidateToken(tokenString); err == nil {
				c.Set(UserClaimsContextKey, claims)
			} else {
				log.Debugf("OptionalAuth: ignoring invalid token: %v", err)
			}
		}
		c.Next()
	}
}

// GetUserClaimsFromContext extracts user claims from Gin context.
func GetUserClaimsFromContext(c *gin.Context) (*services.Claims, bool) {
	claims, exists := c.Get(UserClaimsContextKey)
	if !exists {
		return nil, false
	}
	userClaims, ok := claims.(*services.Claims)
	if !ok {
		return nil, false
	}
	return userClaims, true
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}
