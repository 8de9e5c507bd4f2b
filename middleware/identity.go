// middleware/identity.go

package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/guardian/config"
	logger "github.com/dev-mohitbeniwal/guardian/logging"
	"github.com/dev-mohitbeniwal/guardian/model"
)

// ContextKey is the gin context key under which Identity stores the
// per-request AuthorizationContext.
const ContextKey = "authorizationContext"

type identityClaims struct {
	jwt.StandardClaims
	Groups []string `json:"groups"`
}

// Identity is the hosting-application side of establishing caller
// identity: it verifies the bearer token (HMAC, auth.jwt.secret) and
// installs a request-scoped AuthorizationContext with the token's subject
// as the current user and its "groups" claim as the current user's
// groups. Requests without a token proceed as the anonymous user.
func Identity() gin.HandlerFunc {
	secret := []byte(config.GetString("auth.jwt.secret"))

	return func(c *gin.Context) {
		authCtx := model.NewAuthorizationContext()
		c.Set(ContextKey, authCtx)

		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			c.Next()
			return
		}

		claims := &identityClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			logger.Warn("Rejecting invalid bearer token", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		groups := make([]model.SubjectID, 0, len(claims.Groups))
		for _, group := range claims.Groups {
			groups = append(groups, model.GroupSubject(group))
		}
		authCtx.Set(model.UserSubject(claims.Subject), groups)

		c.Next()
	}
}

// AuthorizationContextFrom retrieves the per-request context installed by
// Identity, or nil if the middleware is not in the chain.
func AuthorizationContextFrom(c *gin.Context) *model.AuthorizationContext {
	value, exists := c.Get(ContextKey)
	if !exists {
		return nil
	}
	authCtx, _ := value.(*model.AuthorizationContext)
	return authCtx
}
