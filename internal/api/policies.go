package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"support-assistant/backend/internal/store"
)

func (s *Server) handleListPolicies(c *gin.Context) {
	sections := s.engine.Sections()
	dtos := make([]SectionDTO, 0, len(sections))
	for _, section := range sections {
		dtos = append(dtos, SectionFromModel(section))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos, "total": len(dtos)})
}

func (s *Server) handleSearchPolicies(c *gin.Context) {
	var req PolicySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid search payload: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" && strings.TrimSpace(req.IssueType) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("query or issue_type is required"))
		return
	}
	c.JSON(http.StatusOK, s.engine.Query(req.Query, req.IssueType, req.Limit))
}

func (s *Server) handleDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid decision payload: %w", err))
		return
	}

	var order *store.Order
	if id := strings.TrimSpace(req.OrderID); id != "" {
		found, err := s.db.GetOrder(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.renderError(c, http.StatusNotFound, fmt.Errorf("order %s not found", id))
			} else {
				s.renderError(c, http.StatusInternalServerError, err)
			}
			return
		}
		order = found
	}

	c.JSON(http.StatusOK, s.decider.Process(c.Request.Context(), req.IssueType, order, req.Query))
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := s.db.GetOrder(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("order %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) handleGetTicket(c *gin.Context) {
	id := c.Param("id")
	ticket, err := s.db.GetTicket(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("ticket %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	photos, err := s.db.ListPhotos(ticket.TicketID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]PhotoDTO, 0, len(photos))
	for _, p := range photos {
		dtos = append(dtos, PhotoFromModel(p))
	}
	c.JSON(http.StatusOK, TicketResponse{Ticket: ticket, Photos: dtos})
}
