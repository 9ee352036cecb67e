package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Order{}, &SupportTicket{}, &SupportPhoto{}, &AdminRequest{}, &Conversation{}, &ChatSession{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetOrder fetches an order by id.
func (d *Database) GetOrder(orderID string) (*Order, error) {
	var order Order
	if err := d.gorm.First(&order, "order_id = ?", strings.TrimSpace(orderID)).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

// SaveOrder inserts or updates an order.
func (d *Database) SaveOrder(order *Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	order.OrderID = strings.TrimSpace(order.OrderID)
	if order.OrderID == "" {
		return errors.New("order id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_name", "amount", "status", "payment_method", "delivery_date", "user_location", "updated_at"}),
	}).Create(order).Error
}

// CreateTicket creates the ticket if it does not exist and returns the stored row.
func (d *Database) CreateTicket(ticket *SupportTicket) (*SupportTicket, error) {
	if ticket == nil {
		return nil, errors.New("ticket is nil")
	}
	if strings.TrimSpace(ticket.TicketID) == "" {
		return nil, errors.New("ticket id is required")
	}
	if ticket.Status == "" {
		ticket.Status = TicketOpen
	}
	if ticket.Priority == "" {
		ticket.Priority = PriorityMedium
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Clauses(clause.OnConflict{DoNothing: true}).Create(ticket).Error; err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	var stored SupportTicket
	if err := d.gorm.First(&stored, "ticket_id = ?", ticket.TicketID).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

// GetTicket fetches a ticket by id.
func (d *Database) GetTicket(ticketID string) (*SupportTicket, error) {
	var ticket SupportTicket
	if err := d.gorm.First(&ticket, "ticket_id = ?", strings.TrimSpace(ticketID)).Error; err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

// UpdateTicket sets the issue type, reasoning and optionally the status of a ticket.
func (d *Database) UpdateTicket(ticketID, issueType, reasoning, status string) error {
	updates := map[string]any{}
	if issueType != "" {
		updates["issue_type"] = issueType
	}
	if reasoning != "" {
		updates["reasoning"] = reasoning
	}
	if status != "" {
		updates["status"] = status
	}
	if len(updates) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Model(&SupportTicket{}).Where("ticket_id = ?", ticketID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SavePhoto records an uploaded photo. A photo id is generated when empty.
func (d *Database) SavePhoto(photo *SupportPhoto) error {
	if photo == nil {
		return errors.New("photo is nil")
	}
	if photo.PhotoID == "" {
		photo.PhotoID = uuid.NewString()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(photo).Error
}

// UpdatePhotoAnalysis stores the analysis result for a photo.
func (d *Database) UpdatePhotoAnalysis(photoID string, analysis any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Model(&SupportPhoto{}).Where("photo_id = ?", photoID).Update("analysis_json", encodeJSON(analysis))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPhotos returns the photos attached to a ticket, oldest first.
func (d *Database) ListPhotos(ticketID string) ([]SupportPhoto, error) {
	var photos []SupportPhoto
	if err := d.gorm.Where("ticket_id = ?", ticketID).Order("uploaded_at ASC").Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

// NewAdminRequestID returns an id of the form ADM followed by six upper-case hex characters.
func NewAdminRequestID() string {
	return "ADM" + strings.ToUpper(uuid.NewString()[:6])
}

// CreateAdminRequest inserts a pending admin request, assigning an id when empty.
func (d *Database) CreateAdminRequest(req *AdminRequest) error {
	if req == nil {
		return errors.New("admin request is nil")
	}
	if req.RequestID == "" {
		req.RequestID = NewAdminRequestID()
	}
	if req.Status == "" {
		req.Status = AdminPending
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(req).Error
}

// GetAdminRequest fetches an admin request by id.
func (d *Database) GetAdminRequest(requestID string) (*AdminRequest, error) {
	var req AdminRequest
	if err := d.gorm.First(&req, "request_id = ?", strings.TrimSpace(requestID)).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

// AdminRequestQuery filters and paginates admin requests.
type AdminRequestQuery struct {
	Status string
	Offset int
	Limit  int
}

// ListAdminRequests returns admin requests, newest first, and the total matching count.
func (d *Database) ListAdminRequests(opts AdminRequestQuery) ([]AdminRequest, int64, error) {
	status := strings.ToLower(strings.TrimSpace(opts.Status))
	filter := func(db *gorm.DB) *gorm.DB {
		if status != "" {
			return db.Where("status = ?", status)
		}
		return db
	}
	var total int64
	if err := d.gorm.Model(&AdminRequest{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := d.gorm.Scopes(filter).Order("created_at DESC").Order("rowid DESC").Offset(opts.Offset)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var rows []AdminRequest
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ErrInvalidTransition is returned when an admin request is not pending.
var ErrInvalidTransition = errors.New("admin request is not pending")

// UpdateAdminRequestStatus moves a pending request to approved or rejected.
func (d *Database) UpdateAdminRequestStatus(requestID, status string) (*AdminRequest, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != AdminApproved && status != AdminRejected {
		return nil, fmt.Errorf("invalid admin status %q", status)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var updated AdminRequest
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "request_id = ?", requestID).Error; err != nil {
			return translate(err)
		}
		if updated.Status != AdminPending {
			return ErrInvalidTransition
		}
		updated.Status = status
		return tx.Model(&updated).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SaveConversation appends a chat message to the log.
func (d *Database) SaveConversation(msg *Conversation) error {
	if msg == nil {
		return errors.New("conversation is nil")
	}
	if msg.ConversationID == "" {
		msg.ConversationID = uuid.NewString()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(msg).Error
}

// ListConversations returns a session's messages in the order they were logged.
func (d *Database) ListConversations(sessionID string, limit int) ([]Conversation, error) {
	q := d.gorm.Where("session_id = ?", sessionID).Order("timestamp ASC").Order("rowid ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Conversation
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveSession upserts the serialized session state.
func (d *Database) SaveSession(sessionID, stateJSON string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	row := &ChatSession{SessionID: sessionID, StateJSON: stateJSON}
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state_json", "updated_at"}),
	}).Create(row).Error
}

// LoadSession returns the serialized state for sessionID.
func (d *Database) LoadSession(sessionID string) (string, error) {
	var row ChatSession
	if err := d.gorm.First(&row, "session_id = ?", sessionID).Error; err != nil {
		return "", translate(err)
	}
	return row.StateJSON, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
