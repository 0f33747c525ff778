package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"postura/api/internal/apperr"
	"postura/api/internal/middleware"
	"postura/api/internal/service"
)

func (h HandlerSet) AdminLogin(c *gin.Context) {
	h.withBody(c, func(body map[string]any) (int, any, error) {
		result, err := h.admin.Login(c.Request.Context(), body)
		return http.StatusOK, result, err
	})
}

func (h HandlerSet) AdminLogout(c *gin.Context) {
	if err := h.admin.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) RefreshCatalog(c *gin.Context) {
	if err := h.catalog.Refresh(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	workouts, _ := h.catalog.Workouts(c.Request.Context())
	plans, _ := h.catalog.TrainingPlans(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"workouts":      len(workouts),
		"trainingPlans": len(plans),
	})
}

// PublishFirmware accepts a multipart form with type, version, optional
// releaseNotes and the binary in "file".
func (h HandlerSet) PublishFirmware(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxFirmwareBytes+1<<20)

	fields := map[string]any{}
	for _, key := range []string{"type", "version", "releaseNotes"} {
		if value, ok := c.GetPostForm(key); ok {
			fields[key] = value
		}
	}

	var file io.Reader
	upload, _, err := c.Request.FormFile("file")
	if err == nil {
		defer upload.Close()
		file = upload
	} else if err != http.ErrMissingFile {
		h.respondError(c, apperr.Validation(`"file" must be a multipart file`))
		return
	}

	fw, err := h.firmware.Publish(c.Request.Context(), fields, file)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fw)
}
