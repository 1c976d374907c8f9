package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

const contextKeyUserID = "user_id"

// UserIDFromContext returns the verified subject set by RequireToken. "" if not set.
func UserIDFromContext(c *gin.Context) string {
	v, ok := c.Get(contextKeyUserID)
	if !ok {
		return ""
	}
	id, ok := v.(string)
	if !ok {
		return ""
	}
	return id
}

// RequireToken is the authorizer: it validates the Authorization header on
// every protected route against the pinned certificate and sets the verified
// subject in context. Any verifier error is a 401 deny, never a crash.
func RequireToken(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := verifier.VerifyHeader(c.GetHeader("Authorization"))
		if err != nil {
			log.Printf("authorizer: deny: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}
