package interfaces

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"govres/usecase"
)

// multipartOverhead leaves room for form boundaries and headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// UploadResume accepts a multipart "file" field and queues it for text
// extraction.
func (h *HTTPHandler) UploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, usecase.ErrFileTooLarge)
			return
		}
		badRequest(c, errors.New("file is required"))
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		respondError(c, usecase.ErrFileTooLarge)
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadBytes+1))
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := h.Resumes.Upload(c.Request.Context(), userID(c), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *HTTPHandler) ListResumes(c *gin.Context) {
	files, err := h.Resumes.List(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *HTTPHandler) GetResume(c *gin.Context) {
	file, err := h.Resumes.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *HTTPHandler) DeleteResume(c *gin.Context) {
	if err := h.Resumes.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
