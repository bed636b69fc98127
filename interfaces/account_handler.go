package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govres/domain"
	"govres/infrastructure"
)

func (h *HTTPHandler) GetMe(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *HTTPHandler) UpdateMe(c *gin.Context) {
	user, err := h.Identity.UpdateProfile(c.Request.Context(), userID(c), func(u *domain.User) error {
		return c.ShouldBindJSON(u)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	users, err := h.Identity.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *HTTPHandler) SetAdmin(c *gin.Context) {
	var req struct {
		IsAdmin *bool `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Identity.SetAdmin(c.Request.Context(), c.Param("id"), *req.IsAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser queues the removal; the identity worker deletes the data.
func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	event := infrastructure.IdentityEvent{
		Type:   infrastructure.IdentityEventUserDeleted,
		UserID: c.Param("id"),
	}
	if err := h.Identity.Publish(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *HTTPHandler) PublishIdentityEvent(c *gin.Context) {
	var event infrastructure.IdentityEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Identity.Publish(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
