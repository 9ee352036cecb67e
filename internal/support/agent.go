package support

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/photo"
	"support-assistant/backend/internal/reasoning"
	"support-assistant/backend/internal/search"
	"support-assistant/backend/internal/storage"
	"support-assistant/backend/internal/store"
)

// Fixed customer-facing texts.
const (
	WelcomeMessage    = "Hi! Swiggy support se baat kar rahe ho. Kya problem hai?"
	PhotoRequest      = "Damage ki photo share karo please, main verify kar ke solution dunga!"
	TechnicalProblem  = "Technical problem aa gayi! Main help kar raha hun."
	PhotoReceived     = "Photo mil gaya! Analysis kar raha hun..."
	ReplacementReply  = "Replacement arrange kar raha hun. Same day delivery hoga!"
	AdminApprovalText = "Admin approval leke solution dunga. Wait karo please."
	NoDamageReply     = "Photo mein clear damage nahi dikh raha, but customer satisfaction important hai. Replacement arrange kar raha hun."

	inappropriateContext = "User asked inappropriate question for support"
)

func damageConfirmed(severity photo.Severity) string {
	return fmt.Sprintf("Damage confirm ho gaya - %s level. Policy check kar raha hun...", severity)
}

func refundApproved(amount int) string {
	return fmt.Sprintf("Policy ke according full refund approve ho gaya! ₹%d refund process kar raha hun. 2-3 days mein account mein aa jayega.", amount)
}

// Errors returned by the agent for caller mistakes.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNoPendingPhoto = errors.New("no photo requested for this session")
)

// Repository is the persistence the agent needs.
type Repository interface {
	SessionStore
	GetOrder(orderID string) (*store.Order, error)
	SaveOrder(order *store.Order) error
	CreateTicket(ticket *store.SupportTicket) (*store.SupportTicket, error)
	UpdateTicket(ticketID, issueType, reasoning, status string) error
	SavePhoto(photo *store.SupportPhoto) error
	UpdatePhotoAnalysis(photoID string, analysis any) error
	CreateAdminRequest(req *store.AdminRequest) error
	SaveConversation(msg *store.Conversation) error
}

// Responder writes the assistant's reply to a composed prompt.
type Responder interface {
	Respond(ctx context.Context, prompt string) string
}

// PriceSearcher looks up product prices.
type PriceSearcher interface {
	SearchPrice(ctx context.Context, product, location string) search.PriceResult
}

// Decider produces policy decisions.
type Decider interface {
	Process(ctx context.Context, issueType string, order *store.Order, query string) decision.Decision
}

// PhotoAnalyzer inspects uploaded photos.
type PhotoAnalyzer interface {
	Analyze(data []byte) (photo.Analysis, error)
}

// Event types published to admins.
const (
	EventAdminRequestCreated = "admin_request.created"
	EventAdminRequestUpdated = "admin_request.updated"
)

// Event is a notification for connected admin clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Publisher fans events out to admins.
type Publisher interface {
	Publish(evt Event)
}

// Deps bundles the agent's collaborators. Prices and Events may be nil.
type Deps struct {
	Repo      Repository
	Responder Responder
	Prices    PriceSearcher
	Decider   Decider
	Photos    PhotoAnalyzer
	Files     storage.Storage
	Orders    *OrderGenerator
	Events    Publisher
}

// Agent runs support conversations.
type Agent struct {
	deps  Deps
	locks *keyedMutex
}

// NewAgent validates deps and returns an agent.
func NewAgent(deps Deps) (*Agent, error) {
	if deps.Repo == nil || deps.Responder == nil || deps.Decider == nil {
		return nil, errors.New("support agent requires repository, responder and decider")
	}
	if deps.Orders == nil {
		deps.Orders = NewOrderGenerator(nil)
	}
	return &Agent{deps: deps, locks: newKeyedMutex()}, nil
}

// TurnResult is the outcome of one customer message.
type TurnResult struct {
	Session   *Session           `json:"session"`
	Replies   []Message          `json:"replies"`
	QueryType string             `json:"query_type"`
	Decision  *decision.Decision `json:"decision,omitempty"`
}

// PhotoResult is the outcome of a photo upload.
type PhotoResult struct {
	Session    *Session           `json:"session"`
	Validation photo.Validation   `json:"validation"`
	PhotoID    string             `json:"photo_id,omitempty"`
	Analysis   *photo.Analysis    `json:"analysis,omitempty"`
	Decision   *decision.Decision `json:"decision,omitempty"`
	AdminReqID string             `json:"admin_request_id,omitempty"`
	Replies    []Message          `json:"replies"`
}

// StartSession creates a session seeded with the welcome message.
func (a *Agent) StartSession() (*Session, error) {
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	sess.append(RoleAssistant, WelcomeMessage)
	if err := saveSession(a.deps.Repo, sess); err != nil {
		return nil, err
	}
	a.logMessage(sess.ID, RoleAssistant, WelcomeMessage, nil)
	return sess, nil
}

// Session returns the stored session.
func (a *Agent) Session(id string) (*Session, error) {
	return loadSession(a.deps.Repo, id)
}

// HandleMessage processes one customer message. Failures after the message is
// accepted are reported to the customer as TechnicalProblem, not as an error.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	unlock := a.locks.Lock(sessionID)
	defer unlock()

	sess, err := loadSession(a.deps.Repo, sessionID)
	if err != nil {
		return nil, err
	}
	start := len(sess.Messages)

	sess.append(RoleUser, text)
	a.logMessage(sess.ID, RoleUser, text, nil)

	result := &TurnResult{Session: sess}
	if err := a.turn(ctx, sess, text, result); err != nil {
		logrus.WithError(err).WithField("session", sess.ID).Warn("support turn failed")
		sess.append(RoleAssistant, TechnicalProblem)
		a.logMessage(sess.ID, RoleAssistant, TechnicalProblem, nil)
	}

	if err := saveSession(a.deps.Repo, sess); err != nil {
		return nil, err
	}
	result.Replies = assistantSince(sess, start)
	return result, nil
}

func (a *Agent) turn(ctx context.Context, sess *Session, text string, result *TurnResult) error {
	c := a.classify(ctx, text, sess)
	result.QueryType = c.Type

	var d *decision.Decision
	if c.Type == QuerySupport && sess.IssueType != "" && sess.CurrentOrder != nil {
		dec := a.deps.Decider.Process(ctx, sess.IssueType, sess.CurrentOrder, text)
		d = &dec
		result.Decision = d
	}

	reply := a.deps.Responder.Respond(ctx, replyPrompt(text, c, sess, d))
	sess.append(RoleAssistant, reply)
	a.logMessage(sess.ID, RoleAssistant, reply, map[string]any{"query_type": c.Type, "decision": d})

	if orderID, ok := ExtractOrderID(text); ok && sess.CurrentOrder == nil {
		order, err := a.resolveOrder(orderID)
		if err != nil {
			return err
		}
		sess.CurrentOrder = order
		sess.CurrentTicket = store.TicketIDForOrder(orderID)
		if _, err := a.deps.Repo.CreateTicket(&store.SupportTicket{
			TicketID:  sess.CurrentTicket,
			OrderID:   orderID,
			IssueType: sess.IssueType,
		}); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
	}

	if issue := DetectIssueType(text); issue != "" {
		sess.IssueType = issue
		if sess.CurrentTicket != "" {
			if err := a.deps.Repo.UpdateTicket(sess.CurrentTicket, issue, "", ""); err != nil {
				return fmt.Errorf("update ticket: %w", err)
			}
		}
	}

	if sess.IssueType == IssueDamage && sess.CurrentOrder != nil && !sess.AwaitingPhoto {
		sess.append(RoleAssistant, PhotoRequest)
		a.logMessage(sess.ID, RoleAssistant, PhotoRequest, nil)
		sess.AwaitingPhoto = true
	}
	return nil
}

func (a *Agent) classify(ctx context.Context, text string, sess *Session) Classification {
	if IsInappropriate(text) {
		return Classification{Type: QueryInappropriate, Context: inappropriateContext}
	}
	if IsPriceQuestion(text) {
		product := ExtractProductName(text)
		location := ""
		if sess.CurrentOrder != nil {
			location = sess.CurrentOrder.UserLocation
		}
		if a.deps.Prices != nil {
			if res := a.deps.Prices.SearchPrice(ctx, product, location); res.Found {
				return Classification{Type: QueryPriceSearch, ProductName: product, PriceInfo: res.PriceText}
			}
		}
		return Classification{Type: QueryPriceSearchFailed, ProductName: product}
	}
	return Classification{Type: QuerySupport}
}

func (a *Agent) resolveOrder(orderID string) (*store.Order, error) {
	order, err := a.deps.Repo.GetOrder(orderID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get order: %w", err)
	}
	order = a.deps.Orders.Generate(orderID)
	if err := a.deps.Repo.SaveOrder(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	logrus.WithFields(logrus.Fields{"order": orderID, "product": order.ProductName}).Info("generated order")
	return order, nil
}

// HandlePhoto validates, stores and analyzes a damage photo, then resolves
// the case. Invalid uploads return a result whose Validation is not valid.
func (a *Agent) HandlePhoto(ctx context.Context, sessionID, filename, contentType string, data []byte) (*PhotoResult, error) {
	unlock := a.locks.Lock(sessionID)
	defer unlock()

	sess, err := loadSession(a.deps.Repo, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.AwaitingPhoto || sess.CurrentTicket == "" {
		return nil, ErrNoPendingPhoto
	}

	result := &PhotoResult{Session: sess, Validation: photo.Validate(data, contentType)}
	if !result.Validation.Valid {
		return result, nil
	}
	if a.deps.Files == nil || a.deps.Photos == nil {
		return nil, errors.New("photo handling is not configured")
	}

	start := len(sess.Messages)
	if err := a.resolvePhoto(ctx, sess, filename, data, result); err != nil {
		logrus.WithError(err).WithField("session", sess.ID).Warn("photo handling failed")
		sess.append(RoleAssistant, TechnicalProblem)
		a.logMessage(sess.ID, RoleAssistant, TechnicalProblem, nil)
	} else {
		sess.AwaitingPhoto = false
	}

	if err := saveSession(a.deps.Repo, sess); err != nil {
		return nil, err
	}
	result.Replies = assistantSince(sess, start)
	return result, nil
}

func (a *Agent) resolvePhoto(ctx context.Context, sess *Session, filename string, data []byte, result *PhotoResult) error {
	photoID := uuid.New()
	name := filename
	if ext := result.Validation.Extension(); ext != "" && !strings.HasSuffix(strings.ToLower(name), ext) {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}
	path, err := a.deps.Files.Upload(ctx, photoID, sess.CurrentTicket, name, result.Validation.ContentType, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("store photo: %w", err)
	}

	record := &store.SupportPhoto{
		PhotoID:          photoID.String(),
		TicketID:         sess.CurrentTicket,
		FilePath:         path,
		OriginalFilename: filename,
	}
	if err := a.deps.Repo.SavePhoto(record); err != nil {
		return fmt.Errorf("save photo: %w", err)
	}
	result.PhotoID = record.PhotoID

	analysis, err := a.deps.Photos.Analyze(data)
	if err != nil {
		return fmt.Errorf("analyze photo: %w", err)
	}
	result.Analysis = &analysis
	if err := a.deps.Repo.UpdatePhotoAnalysis(record.PhotoID, analysis); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	a.say(sess, PhotoReceived, nil)
	if !analysis.DamageDetected {
		a.say(sess, NoDamageReply, map[string]any{"analysis": analysis})
		return nil
	}

	a.say(sess, damageConfirmed(analysis.DamageSeverity), map[string]any{"analysis": analysis})
	d := a.deps.Decider.Process(ctx, IssueDamage, sess.CurrentOrder, fmt.Sprintf("photo damage %s", analysis.DamageSeverity))
	result.Decision = &d
	ctxInfo := map[string]any{"decision": d}

	status := ""
	switch d.Recommendation {
	case reasoning.ProcessRefund:
		amount := 0
		if sess.CurrentOrder != nil {
			amount = sess.CurrentOrder.Amount
		}
		a.say(sess, refundApproved(amount), ctxInfo)
		status = store.TicketResolved
	case reasoning.OfferReplacement:
		a.say(sess, ReplacementReply, ctxInfo)
		status = store.TicketResolved
	default:
		req := &store.AdminRequest{
			TicketID:      sess.CurrentTicket,
			OrderID:       orderIDOf(sess.CurrentOrder),
			IssueSummary:  fmt.Sprintf("%s damage reported: %s", analysis.DamageSeverity, analysis.AnalysisNotes),
			PolicyStatus:  string(d.Recommendation),
			PhotoEvidence: path,
			ChatSummary:   chatSummary(sess, 6),
		}
		req.SetDecision(d)
		if err := a.deps.Repo.CreateAdminRequest(req); err != nil {
			return fmt.Errorf("create admin request: %w", err)
		}
		result.AdminReqID = req.RequestID
		if a.deps.Events != nil {
			a.deps.Events.Publish(Event{Type: EventAdminRequestCreated, Data: req})
		}
		a.say(sess, AdminApprovalText, ctxInfo)
	}

	if err := a.deps.Repo.UpdateTicket(sess.CurrentTicket, IssueDamage, d.Reasoning, status); err != nil {
		logrus.WithError(err).WithField("ticket", sess.CurrentTicket).Warn("update ticket reasoning")
	}
	return nil
}

func (a *Agent) say(sess *Session, text string, meta any) {
	sess.append(RoleAssistant, text)
	a.logMessage(sess.ID, RoleAssistant, text, meta)
}

func (a *Agent) logMessage(sessionID, sender, text string, meta any) {
	msg := &store.Conversation{
		SessionID: sessionID,
		Message:   text,
		Sender:    sender,
		Language:  DetectLanguage(text),
	}
	msg.SetContext(meta)
	if err := a.deps.Repo.SaveConversation(msg); err != nil {
		logrus.WithError(err).WithField("session", sessionID).Warn("log conversation")
	}
}

func assistantSince(sess *Session, start int) []Message {
	var out []Message
	for _, m := range sess.Messages[start:] {
		if m.Role == RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

func chatSummary(sess *Session, n int) string {
	lines := make([]string, 0, n)
	for _, m := range sess.recent(n) {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func orderIDOf(o *store.Order) string {
	if o == nil {
		return ""
	}
	return o.OrderID
}
