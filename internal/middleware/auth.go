// Package middleware guards the HTTP surface. Player routes accept the
// guest token; /admin routes want a separately scoped admin token, so a
// leaked guest token never opens the back office.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "luckycards-service/pkg/auth"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey  = "userID"
	ContextAdminIDKey = "adminID"
)

// AuthRequired admits requests carrying a valid guest token and puts
// the player id on the gin context.
func AuthRequired() gin.HandlerFunc {
	return requireToken(ContextUserIDKey, pkgAuth.ParseUserToken)
}

// AdminAuthRequired is the admin-scoped counterpart.
func AdminAuthRequired() gin.HandlerFunc {
	return requireToken(ContextAdminIDKey, pkgAuth.ParseAdminToken)
}

func requireToken(ctxKey string, parse func(string) (*pkgAuth.Claims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxKey, claims.SubjectID)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
