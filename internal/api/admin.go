package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"support-assistant/backend/internal/store"
	"support-assistant/backend/internal/support"
)

var (
	errAdminDisabled = errors.New("admin access is not configured")
	errUnauthorized  = errors.New("invalid or missing admin token")
	errPageRange     = errors.New("page is out of range")
)

// requireAdmin checks a bearer token against the configured bcrypt hash.
// Websocket clients may pass the token as the token query parameter.
func (s *Server) requireAdmin(c *gin.Context) {
	if len(s.adminHash) == 0 {
		s.renderError(c, http.StatusServiceUnavailable, errAdminDisabled)
		c.Abort()
		return
	}
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" || bcrypt.CompareHashAndPassword(s.adminHash, []byte(token)) != nil {
		s.renderError(c, http.StatusUnauthorized, errUnauthorized)
		c.Abort()
		return
	}
	c.Next()
}

func bearerToken(header string) string {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

const (
	defaultAdminPageSize = 25
	maxAdminPageSize     = 100
)

func (s *Server) handleListAdminRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	switch {
	case pageSize <= 0:
		pageSize = defaultAdminPageSize
	case pageSize > maxAdminPageSize:
		pageSize = maxAdminPageSize
	}
	if page > math.MaxInt/pageSize {
		s.renderError(c, http.StatusBadRequest, errPageRange)
		return
	}

	rows, total, err := s.db.ListAdminRequests(store.AdminRequestQuery{
		Status: c.Query("status"),
		Offset: page * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]AdminRequestDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, AdminRequestFromModel(row))
	}
	c.JSON(http.StatusOK, AdminRequestsResponse{Items: dtos, Total: total})
}

func (s *Server) handleAdminStatus(c *gin.Context) {
	var req AdminStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid status payload: %w", err))
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != store.AdminApproved && status != store.AdminRejected {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("status must be %s or %s", store.AdminApproved, store.AdminRejected))
		return
	}

	id := c.Param("id")
	updated, err := s.db.UpdateAdminRequestStatus(id, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.renderError(c, http.StatusNotFound, fmt.Errorf("admin request %s not found", id))
		return
	case errors.Is(err, store.ErrInvalidTransition):
		s.renderError(c, http.StatusConflict, err)
		return
	case err != nil:
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	if status == store.AdminApproved && updated.TicketID != "" {
		if err := s.db.UpdateTicket(updated.TicketID, "", "", store.TicketResolved); err != nil && !errors.Is(err, store.ErrNotFound) {
			logrus.WithError(err).WithField("ticket", updated.TicketID).Warn("resolve ticket after approval")
		}
	}

	logrus.WithFields(logrus.Fields{"request": updated.RequestID, "status": status}).Info("admin request updated")
	dto := AdminRequestFromModel(*updated)
	s.notifier.Publish(support.Event{Type: support.EventAdminRequestUpdated, Data: dto})
	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleAdminStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("admin websocket connected")
	defer s.notifier.Unregister(client)

	if _, pending, err := s.db.ListAdminRequests(store.AdminRequestQuery{Status: store.AdminPending, Limit: 1}); err == nil {
		_ = client.writeJSON(AdminEvent{Type: "hello", Pending: pending, Timestamp: time.Now().UTC()})
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("admin websocket closed")
			} else {
				logrus.WithError(err).Warn("admin websocket unexpected close")
			}
			break
		}
	}
}
