package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nigrani/internal/services"
)

// SubjectKey is the gin context key holding the authenticated token subject.
const SubjectKey = "subject"

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (*services.TokenClaims, error)
}

// ActivityRecorder is told about every authenticated subject.
type ActivityRecorder interface {
	Touch(subject string)
}

// BearerToken extracts a token from the Authorization header, falling back
// to the token query parameter.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Query("token")
}

// BearerAuth rejects requests without a valid token and records the
// token subject as active.
func BearerAuth(tokens TokenValidator, activity ActivityRecorder, logger *SecurityLogger) gin.HandlerFunc {
	validator := NewInputValidator()
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			logger.LogFailedAuth(c.ClientIP(), "missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required in Authorization header or query parameter"})
			return
		}
		if !validator.ValidateToken(token) {
			logger.LogFailedAuth(c.ClientIP(), "malformed token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			logger.LogFailedAuth(c.ClientIP(), err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if activity != nil {
			activity.Touch(claims.Subject)
		}
		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
