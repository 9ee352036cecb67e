package api

import (
	"encoding/json"

	"support-assistant/backend/internal/policy"
	"support-assistant/backend/internal/store"
)

// MessageRequest carries one customer chat message.
type MessageRequest struct {
	Message string `json:"message"`
}

// PolicySearchRequest queries the policy corpus.
type PolicySearchRequest struct {
	Query     string `json:"query"`
	IssueType string `json:"issue_type"`
	Limit     int    `json:"limit"`
}

// DecisionRequest asks for a policy decision on an order.
type DecisionRequest struct {
	IssueType string `json:"issue_type"`
	OrderID   string `json:"order_id"`
	Query     string `json:"query"`
}

// AdminStatusRequest approves or rejects an admin request.
type AdminStatusRequest struct {
	Status string `json:"status"`
}

// SectionDTO summarises a loaded policy section.
type SectionDTO struct {
	ID         string   `json:"id"`
	PolicyType string   `json:"policy_type"`
	Keywords   []string `json:"keywords"`
	Preview    string   `json:"preview"`
}

const previewRunes = 120

// SectionFromModel converts a policy section for listing.
func SectionFromModel(s policy.Section) SectionDTO {
	preview := []rune(s.Content)
	text := s.Content
	if len(preview) > previewRunes {
		text = string(preview[:previewRunes]) + "..."
	}
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return SectionDTO{ID: s.ID, PolicyType: s.PolicyType, Keywords: keywords, Preview: text}
}

// AdminRequestDTO is the API representation of an admin request.
type AdminRequestDTO struct {
	store.AdminRequest
	Decision json.RawMessage `json:"decision,omitempty"`
}

// AdminRequestFromModel attaches the decoded decision payload.
func AdminRequestFromModel(r store.AdminRequest) AdminRequestDTO {
	dto := AdminRequestDTO{AdminRequest: r}
	if json.Valid([]byte(r.DecisionJSON)) {
		dto.Decision = json.RawMessage(r.DecisionJSON)
	}
	return dto
}

// AdminRequestsResponse is a page of admin requests.
type AdminRequestsResponse struct {
	Items []AdminRequestDTO `json:"items"`
	Total int64             `json:"total"`
}

// PhotoDTO is the API representation of an uploaded photo.
type PhotoDTO struct {
	store.SupportPhoto
	Analysis json.RawMessage `json:"analysis_result,omitempty"`
}

// TicketResponse bundles a ticket with its photos.
type TicketResponse struct {
	Ticket *store.SupportTicket `json:"ticket"`
	Photos []PhotoDTO           `json:"photos"`
}

// PhotoFromModel attaches the decoded analysis payload.
func PhotoFromModel(p store.SupportPhoto) PhotoDTO {
	dto := PhotoDTO{SupportPhoto: p}
	if json.Valid([]byte(p.AnalysisJSON)) {
		dto.Analysis = json.RawMessage(p.AnalysisJSON)
	}
	return dto
}
