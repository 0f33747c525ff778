package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"postura/api/internal/apperr"
	"postura/api/internal/models"
)

const (
	ContextBearerToken  = "bearer_token"
	ContextAccessToken  = "access_token"
	ContextInternalUser = "internal_user"
)

type TokenLookup interface {
	FindByToken(ctx context.Context, token string) (models.AccessToken, error)
}

type InternalTokenLookup interface {
	FindByAccessToken(ctx context.Context, token string) (models.InternalUser, error)
}

// Every guard failure answers with this response so callers cannot tell a
// missing header from an unknown token or a foreign resource.
func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.MsgInvalidCredentials})
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// authenticate stores the caller's access token on the context. It aborts
// and reports false when there is none.
func authenticate(c *gin.Context, tokens TokenLookup) bool {
	raw, ok := bearerToken(c)
	if !ok {
		unauthorized(c)
		return false
	}
	token, err := tokens.FindByToken(c.Request.Context(), raw)
	if err != nil {
		unauthorized(c)
		return false
	}

	c.Set(ContextBearerToken, raw)
	c.Set(ContextAccessToken, token)
	return true
}

// Authenticated admits any request carrying a stored access token.
func Authenticated(tokens TokenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) {
			return
		}
		c.Next()
	}
}

// SelfAuthenticated additionally requires the token's user to be the one
// named by the path parameter param.
func SelfAuthenticated(tokens TokenLookup, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) || !ownsParam(c, param) {
			return
		}
		c.Next()
	}
}

// AdminAuthenticated admits requests carrying an internal user's token.
func AdminAuthenticated(admins InternalTokenLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			unauthorized(c)
			return
		}
		admin, err := admins.FindByAccessToken(c.Request.Context(), raw)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(ContextBearerToken, raw)
		c.Set(ContextInternalUser, admin)
		c.Next()
	}
}

func BearerToken(c *gin.Context) string {
	return c.GetString(ContextBearerToken)
}
