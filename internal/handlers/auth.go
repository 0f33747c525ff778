package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"postura/api/internal/middleware"
)

func (h HandlerSet) EmailLogin(c *gin.Context) {
	h.withBody(c, func(body map[string]any) (int, any, error) {
		result, err := h.auth.Login(c.Request.Context(), body)
		return http.StatusOK, result, err
	})
}

func (h HandlerSet) FacebookLogin(c *gin.Context) {
	h.withBody(c, func(body map[string]any) (int, any, error) {
		result, err := h.auth.FacebookLogin(c.Request.Context(), body)
		if err != nil {
			return 0, nil, err
		}
		status := http.StatusOK
		if result.IsNew {
			status = http.StatusCreated
		}
		return status, result, nil
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
