package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"support-assistant/backend/internal/photo"
	"support-assistant/backend/internal/support"
)

func (s *Server) handleCreateSession(c *gin.Context) {
	sess, err := s.agent.StartSession()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.agent.Session(c.Param("id"))
	if err != nil {
		s.renderSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid message payload: %w", err))
		return
	}
	result, err := s.agent.HandleMessage(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		s.renderSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePhoto(c *gin.Context) {
	header, err := c.FormFile("photo")
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("photo file is required: %w", err))
		return
	}
	src, err := header.Open()
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	defer src.Close()

	// One byte past the limit is enough to trip the size check.
	data, err := io.ReadAll(io.LimitReader(src, photo.MaxUploadBytes+1))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("read photo: %w", err))
		return
	}

	result, err := s.agent.HandlePhoto(c.Request.Context(), c.Param("id"), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.renderSessionError(c, err)
		return
	}
	if !result.Validation.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"errors": result.Validation.Errors})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) renderSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, support.ErrSessionNotFound):
		s.renderError(c, http.StatusNotFound, err)
	case errors.Is(err, support.ErrEmptyMessage):
		s.renderError(c, http.StatusBadRequest, err)
	case errors.Is(err, support.ErrNoPendingPhoto):
		s.renderError(c, http.StatusConflict, err)
	default:
		s.renderError(c, http.StatusInternalServerError, err)
	}
}
