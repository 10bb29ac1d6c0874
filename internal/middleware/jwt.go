package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/strivio/contesthub-backend/internal/response"
	"github.com/strivio/contesthub-backend/internal/service"
)

// ContextKeyClaims is the Gin context key holding the validated JWT claims.
const ContextKeyClaims = "claims"

// requireToken builds a middleware that validates a JWT of the given type.
// fromQuery additionally accepts ?token=..., which WebSocket upgrade
// requests need because browsers cannot set headers on them.
func requireToken(authService *service.AuthService, want service.TokenType, wrongTypeCode response.ErrCode, fromQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" && fromQuery {
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if claims.TokenType != want {
			response.AbortFail(c, http.StatusForbidden, wrongTypeCode)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireParticipantJWT guards participant routes.
func RequireParticipantJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, service.TokenTypeParticipant, response.ErrParticipantAccessOnly, true)
}

// RequireEducatorJWT guards educator routes.
func RequireEducatorJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, service.TokenTypeEducator, response.ErrEducatorAccessOnly, false)
}

// RequireEducatorWSAuth guards educator WebSocket routes, accepting the
// token from the query string.
func RequireEducatorWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return requireToken(authService, service.TokenTypeEducator, response.ErrEducatorAccessOnly, true)
}

// GetClaims returns the claims a Require* middleware stored, or nil when the
// route was registered without one.
func GetClaims(c *gin.Context) *service.Claims {
	val, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := val.(*service.Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
