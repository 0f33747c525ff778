package middleware

import (
	"github.com/gin-gonic/gin"

	"postura/api/internal/models"
)

// ownsParam checks that the access token stored by authenticate belongs to
// the user id in path parameter param.
func ownsParam(c *gin.Context, param string) bool {
	value, exists := c.Get(ContextAccessToken)
	if !exists {
		unauthorized(c)
		return false
	}
	token, ok := value.(models.AccessToken)
	if !ok || token.UserID.IsZero() || token.UserID.Hex() != c.Param(param) {
		unauthorized(c)
		return false
	}
	return true
}
