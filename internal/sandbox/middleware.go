package sandbox

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyClaims is the Gin context key for the validated token claims.
const ContextKeyClaims = "claims"

// RequireAdvisor validates a bearer access token from the Authorization
// header and requires the dosen realm role. 401 here is what drives the
// client's refresh-and-retry.
func RequireAdvisor(identity *Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr := ""
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
		if tokenStr == "" {
			abortFail(c, http.StatusUnauthorized, "Token autentikasi diperlukan")
			return
		}

		claims, err := identity.parse(tokenStr)
		if err != nil || claims.Typ != "Bearer" {
			abortFail(c, http.StatusUnauthorized, "Token tidak valid atau kedaluwarsa")
			return
		}

		if !hasRole(claims, "dosen") {
			abortFail(c, http.StatusForbidden, "Akses hanya untuk dosen PA")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the validated claims from the Gin context.
func GetClaims(c *gin.Context) *tokenClaims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*tokenClaims)
	if !ok {
		return nil
	}
	return claims
}

func hasRole(claims *tokenClaims, role string) bool {
	if claims.RealmAccess == nil {
		return false
	}
	for _, r := range claims.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// abortFail aborts the middleware chain with the backend's failure envelope.
func abortFail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"response": false,
		"message":  message,
		"data":     nil,
	})
}
