package interfaces

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"govres/infrastructure"
)

func (h *HTTPHandler) SearchJobs(c *gin.Context) {
	var params infrastructure.SearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Ally.SearchJobs(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SelectJob saves a posting and returns the application for it.
func (h *HTTPHandler) SelectJob(c *gin.Context) {
	var req struct {
		ControlNumber string `json:"control_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	app, err := h.Ally.SelectJob(c.Request.Context(), userID(c), req.ControlNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *HTTPHandler) ListApplications(c *gin.Context) {
	apps, err := h.Ally.ListApplications(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

func (h *HTTPHandler) GetApplication(c *gin.Context) {
	app, err := h.Ally.GetApplication(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *HTTPHandler) DeleteApplication(c *gin.Context) {
	if err := h.Ally.DeleteApplication(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) GetSteps(c *gin.Context) {
	view, err := h.Ally.Steps(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) SetStep(c *gin.Context) {
	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.Ally.SetStep(c.Request.Context(), userID(c), c.Param("id"), c.Param("step"), *req.Completed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *HTTPHandler) ExtractKeywords(c *gin.Context) {
	keywords, err := h.Ally.ExtractKeywords(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

func (h *HTTPHandler) CategorizeTopics(c *gin.Context) {
	topics, err := h.Ally.CategorizeTopics(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (h *HTTPHandler) GetTopics(c *gin.Context) {
	topics, err := h.Ally.Topics(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

func (h *HTTPHandler) MatchQualifications(c *gin.Context) {
	quals, err := h.Ally.MatchQualifications(c.Request.Context(), userID(c), c.Param("id"), c.Param("pastJobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qualifications": quals})
}

func (h *HTTPHandler) GetQualifications(c *gin.Context) {
	quals, err := h.Ally.Qualifications(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qualifications": quals})
}

func (h *HTTPHandler) PastJobQualifications(c *gin.Context) {
	quals, err := h.Ally.PastJobQualifications(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qualifications": quals})
}

// DraftParagraph takes the conversation so far and returns the model's next turn.
func (h *HTTPHandler) DraftParagraph(c *gin.Context) {
	var req struct {
		Messages []infrastructure.Message `json:"messages" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	draft, err := h.Ally.DraftParagraph(c.Request.Context(), userID(c), c.Param("id"), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *HTTPHandler) ConfirmQualification(c *gin.Context) {
	var req struct {
		Paragraph     *string `json:"paragraph"`
		UserConfirmed *bool   `json:"user_confirmed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.Ally.ConfirmQualification(c.Request.Context(), userID(c), c.Param("id"), req.Paragraph, req.UserConfirmed)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *HTTPHandler) BuildResume(c *gin.Context) {
	text, err := h.Ally.BuildResume(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}
