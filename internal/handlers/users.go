package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) Signup(c *gin.Context) {
	h.withBody(c, func(body map[string]any) (int, any, error) {
		user, err := h.users.Signup(c.Request.Context(), body)
		return http.StatusCreated, user, err
	})
}

func (h HandlerSet) ConfirmEmail(c *gin.Context) {
	user, err := h.users.ConfirmEmail(c.Request.Context(), queryMap(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// RequestPasswordReset answers the same way whether or not the email
// belongs to an account.
func (h HandlerSet) RequestPasswordReset(c *gin.Context) {
	h.withBody(c, func(body map[string]any) (int, any, error) {
		err := h.users.RequestPasswordReset(c.Request.Context(), body)
		return http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent"}, err
	})
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	h.withBody(c, func(body map[string]any) (int, any, error) {
		err := h.users.ResetPassword(c.Request.Context(), body)
		return http.StatusOK, gin.H{"message": "Password updated"}, err
	})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.withBody(c, func(body map[string]any) (int, any, error) {
		user, err := h.users.Update(c.Request.Context(), id, body)
		return http.StatusOK, user, err
	})
}

func (h HandlerSet) ResendConfirmation(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.users.ResendConfirmation(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) RecordSession(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.withBody(c, func(body map[string]any) (int, any, error) {
		user, err := h.users.RecordSession(c.Request.Context(), id, body)
		return http.StatusOK, user, err
	})
}

func (h HandlerSet) FavoriteWorkouts(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	workouts, err := h.users.FavoriteWorkouts(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": workouts})
}

func (h HandlerSet) UserTrainingPlans(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	plans, err := h.users.TrainingPlans(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": plans})
}

func (h HandlerSet) SubmitSupport(c *gin.Context) {
	id, err := pathUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.withBody(c, func(body map[string]any) (int, any, error) {
		ticket, err := h.support.Submit(c.Request.Context(), id, body)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusAccepted, gin.H{"reference": ticket.Reference, "status": ticket.Status}, nil
	})
}
