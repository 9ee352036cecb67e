package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Order is a customer order referenced during a support conversation.
type Order struct {
	OrderID       string    `gorm:"primaryKey;size:16" json:"order_id"`
	ProductName   string    `gorm:"size:255" json:"product_name"`
	Amount        int       `json:"amount"`
	Status        string    `gorm:"size:32" json:"status"`
	PaymentMethod string    `gorm:"size:32" json:"payment_method"`
	DeliveryDate  string    `gorm:"size:32" json:"delivery_date"`
	UserLocation  string    `gorm:"size:64" json:"user_location"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summary renders the order as a single line for prompts.
func (o *Order) Summary() string {
	if o == nil {
		return "None"
	}
	return fmt.Sprintf("order_id=%s product=%s amount=Rs %d status=%s payment=%s delivery_date=%s location=%s",
		o.OrderID, o.ProductName, o.Amount, o.Status, o.PaymentMethod, o.DeliveryDate, o.UserLocation)
}

// Ticket statuses and priorities.
const (
	TicketOpen     = "open"
	TicketResolved = "resolved"

	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// SupportTicket groups a conversation's issue against one order.
type SupportTicket struct {
	TicketID  string    `gorm:"primaryKey;size:32" json:"ticket_id"`
	OrderID   string    `gorm:"size:16;index" json:"order_id"`
	IssueType string    `gorm:"size:32" json:"issue_type"`
	Status    string    `gorm:"size:16;default:open" json:"status"`
	Priority  string    `gorm:"size:16;default:medium" json:"priority"`
	Reasoning string    `gorm:"type:text" json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TicketIDForOrder derives the ticket id used for an order's conversation.
func TicketIDForOrder(orderID string) string {
	return "TKT" + strings.TrimSpace(orderID)
}

// SupportPhoto is an uploaded evidence photo.
type SupportPhoto struct {
	PhotoID          string    `gorm:"primaryKey;size:36" json:"photo_id"`
	TicketID         string    `gorm:"size:32;index" json:"ticket_id"`
	FilePath         string    `gorm:"size:512" json:"file_path"`
	OriginalFilename string    `gorm:"size:255" json:"original_filename"`
	AnalysisJSON     string    `gorm:"type:text" json:"-"`
	UploadedAt       time.Time `gorm:"autoCreateTime" json:"upload_timestamp"`
}

// SetAnalysis stores v as the photo's analysis result.
func (p *SupportPhoto) SetAnalysis(v any) {
	p.AnalysisJSON = encodeJSON(v)
}

// Admin request statuses.
const (
	AdminPending  = "pending"
	AdminApproved = "approved"
	AdminRejected = "rejected"
)

// AdminRequest asks a human admin to approve a resolution the assistant could not grant.
type AdminRequest struct {
	RequestID     string    `gorm:"primaryKey;size:16" json:"request_id"`
	TicketID      string    `gorm:"size:32;index" json:"ticket_id"`
	OrderID       string    `gorm:"size:16;index" json:"order_id"`
	IssueSummary  string    `gorm:"type:text" json:"issue_summary"`
	PolicyStatus  string    `gorm:"size:32" json:"policy_status"`
	PhotoEvidence string    `gorm:"size:512" json:"photo_evidence"`
	ChatSummary   string    `gorm:"type:text" json:"chat_summary"`
	DecisionJSON  string    `gorm:"type:text" json:"-"`
	Status        string    `gorm:"size:16;index;default:pending" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SetDecision stores the decision that triggered the request.
func (r *AdminRequest) SetDecision(v any) {
	r.DecisionJSON = encodeJSON(v)
}

// Conversation is one logged chat message.
type Conversation struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversation_id"`
	SessionID      string    `gorm:"size:36;index" json:"session_id"`
	Message        string    `gorm:"type:text" json:"message"`
	Sender         string    `gorm:"size:16" json:"sender"`
	Language       string    `gorm:"size:8" json:"language"`
	ContextJSON    string    `gorm:"type:text" json:"-"`
	Timestamp      time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

// SetContext stores the reasoning context attached to the message.
func (c *Conversation) SetContext(v any) {
	c.ContextJSON = encodeJSON(v)
}

// ChatSession persists the server-side state of a chat.
type ChatSession struct {
	SessionID string    `gorm:"primaryKey;size:36"`
	StateJSON string    `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func encodeJSON(v any) string {
	if v == nil {
		return ""
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(payload)
}
