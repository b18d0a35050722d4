package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
	"github.com/noah-isme/attendance-api/pkg/response"
)

// ContextTeacherKey is the gin context key storing the teacher's JWT claims.
const ContextTeacherKey = "currentTeacher"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid teacher access token.
func JWT(tokens tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextTeacherKey, claims)
		c.Next()
	}
}

// TeacherClaims returns the authenticated teacher's claims, or nil outside JWT routes.
func TeacherClaims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextTeacherKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// TeacherID returns the authenticated teacher id or an empty string.
func TeacherID(c *gin.Context) string {
	if claims := TeacherClaims(c); claims != nil {
		return claims.TeacherID
	}
	return ""
}
