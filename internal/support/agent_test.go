package support

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"support-assistant/backend/internal/decision"
	"support-assistant/backend/internal/photo"
	"support-assistant/backend/internal/reasoning"
	"support-assistant/backend/internal/search"
	"support-assistant/backend/internal/storage"
	"support-assistant/backend/internal/store"
)

type stubResponder struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (s *stubResponder) Respond(_ context.Context, prompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.reply == "" {
		return "ok"
	}
	return s.reply
}

func (s *stubResponder) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type stubDecider struct {
	recommendation reasoning.Recommendation
	calls          int
	lastQuery      string
}

func (s *stubDecider) Process(_ context.Context, issue string, order *store.Order, query string) decision.Decision {
	s.calls++
	s.lastQuery = query
	return decision.Decision{System: decision.SystemRAGRAT, Recommendation: s.recommendation, Reasoning: "because " + issue, Confidence: reasoning.ConfidenceHigh}
}

type stubPrices struct {
	result search.PriceResult
}

func (s stubPrices) SearchPrice(context.Context, string, string) search.PriceResult {
	return s.result
}

type fixedAnalyzer struct {
	analysis photo.Analysis
	err      error
}

func (f fixedAnalyzer) Analyze([]byte) (photo.Analysis, error) {
	return f.analysis, f.err
}

type recordingPublisher struct {
	events []Event
}

func (r *recordingPublisher) Publish(evt Event) {
	r.events = append(r.events, evt)
}

type fixture struct {
	agent     *Agent
	db        *store.Database
	responder *stubResponder
	decider   *stubDecider
	events    *recordingPublisher
}

func newFixture(t *testing.T, rec reasoning.Recommendation, analysis photo.Analysis) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "support.db"), true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	files, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	f := &fixture{
		db:        db,
		responder: &stubResponder{},
		decider:   &stubDecider{recommendation: rec},
		events:    &recordingPublisher{},
	}
	f.agent, err = NewAgent(Deps{
		Repo:      db,
		Responder: f.responder,
		Prices:    stubPrices{result: search.PriceResult{Found: true, PriceText: "₹199"}},
		Decider:   f.decider,
		Photos:    fixedAnalyzer{analysis: analysis},
		Files:     files,
		Events:    f.events,
	})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return f
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func lastContents(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}

func TestStartSessionWelcomes(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	sess, err := f.agent.StartSession()
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Content != WelcomeMessage {
		t.Fatalf("unexpected messages %+v", sess.Messages)
	}
	loaded, err := f.agent.Session(sess.ID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.ID != sess.ID {
		t.Fatalf("expected %s got %s", sess.ID, loaded.ID)
	}
	if _, err := f.agent.Session("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestHandleMessageDamageFlowRequestsPhoto(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	sess, _ := f.agent.StartSession()

	res, err := f.agent.HandleMessage(context.Background(), sess.ID, "Order 45678 arrived broken")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if res.QueryType != QuerySupport {
		t.Fatalf("expected support, got %s", res.QueryType)
	}
	if res.Decision != nil {
		t.Fatal("no decision expected before order and issue are known")
	}
	replies := lastContents(res.Replies)
	if len(replies) != 2 || replies[0] != "ok" || replies[1] != PhotoRequest {
		t.Fatalf("unexpected replies %v", replies)
	}
	if !res.Session.AwaitingPhoto || res.Session.CurrentTicket != "TKT45678" || res.Session.IssueType != IssueDamage {
		t.Fatalf("unexpected session %+v", res.Session)
	}

	order, err := f.db.GetOrder("45678")
	if err != nil {
		t.Fatalf("generated order not persisted: %v", err)
	}
	if order.Amount < 99 || order.Amount > 899 {
		t.Fatalf("unexpected amount %d", order.Amount)
	}
	ticket, err := f.db.GetTicket("TKT45678")
	if err != nil {
		t.Fatalf("ticket not created: %v", err)
	}
	if ticket.IssueType != IssueDamage {
		t.Fatalf("expected ticket issue damage, got %s", ticket.IssueType)
	}

	// A follow-up support question now carries a policy decision.
	res, err = f.agent.HandleMessage(context.Background(), sess.ID, "what happens now?")
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if res.Decision == nil || f.decider.calls != 1 {
		t.Fatalf("expected decision on follow-up, calls=%d", f.decider.calls)
	}
	if !strings.Contains(f.responder.last(), "RAG_RAT_POLICY_REASONING") {
		t.Fatalf("prompt missing decision context:\n%s", f.responder.last())
	}
	if len(res.Replies) != 1 {
		t.Fatalf("photo request must not repeat while awaiting, got %v", lastContents(res.Replies))
	}

	logs, err := f.db.ListConversations(sess.ID, 0)
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(logs) != 6 {
		t.Fatalf("expected 6 logged messages, got %d", len(logs))
	}
}

func TestHandleMessageKeepsExistingOrder(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	if err := f.db.SaveOrder(&store.Order{OrderID: "1111", ProductName: "Phone Stand", Amount: 250}); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	sess, _ := f.agent.StartSession()

	res, err := f.agent.HandleMessage(context.Background(), sess.ID, "order 1111 not received")
	if err != nil {
		t.Fatalf("handle message: %v", err)
	}
	if res.Session.CurrentOrder == nil || res.Session.CurrentOrder.ProductName != "Phone Stand" {
		t.Fatalf("expected stored order, got %+v", res.Session.CurrentOrder)
	}
	if res.Session.IssueType != IssueMissing || res.Session.AwaitingPhoto {
		t.Fatalf("unexpected session %+v", res.Session)
	}

	res, err = f.agent.HandleMessage(context.Background(), sess.ID, "also order 2222")
	if err != nil {
		t.Fatalf("second message: %v", err)
	}
	if res.Session.CurrentOrder.OrderID != "1111" {
		t.Fatalf("current order must not change, got %s", res.Session.CurrentOrder.OrderID)
	}
}

func TestHandleMessageClassifications(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	sess, _ := f.agent.StartSession()

	res, err := f.agent.HandleMessage(context.Background(), sess.ID, "tell me joke")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.QueryType != QueryInappropriate || !strings.Contains(f.responder.last(), inappropriateContext) {
		t.Fatalf("unexpected classification %s", res.QueryType)
	}

	res, err = f.agent.HandleMessage(context.Background(), sess.ID, "phone stand price")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.QueryType != QueryPriceSearch || !strings.Contains(f.responder.last(), "PRICE_INFO: ₹199") {
		t.Fatalf("unexpected price classification %s\n%s", res.QueryType, f.responder.last())
	}

	if _, err := f.agent.HandleMessage(context.Background(), sess.ID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := f.agent.HandleMessage(context.Background(), "nope", "hi"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPriceSearchFailureWithoutSearcher(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	f.agent.deps.Prices = nil
	sess, _ := f.agent.StartSession()

	res, err := f.agent.HandleMessage(context.Background(), sess.ID, "how much is a power bank")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.QueryType != QueryPriceSearchFailed || !strings.Contains(f.responder.last(), "power bank (price search failed)") {
		t.Fatalf("unexpected result %s\n%s", res.QueryType, f.responder.last())
	}
}

func startDamageCase(t *testing.T, f *fixture) *Session {
	t.Helper()
	sess, _ := f.agent.StartSession()
	if err := f.db.SaveOrder(&store.Order{OrderID: "9876", ProductName: "Phone Charger Cable", Amount: 349}); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := f.agent.HandleMessage(context.Background(), sess.ID, "order 9876 is damaged"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	return sess
}

func TestHandlePhotoOutcomes(t *testing.T) {
	damaged := photo.Analysis{DamageDetected: true, DamageSeverity: photo.SeverityHigh, AnalysisNotes: "Clear visible damage detected - product significantly damaged"}
	tests := []struct {
		name     string
		rec      reasoning.Recommendation
		analysis photo.Analysis
		replies  []string
		admin    bool
		status   string
	}{
		{"refund", reasoning.ProcessRefund, damaged, []string{PhotoReceived, "Damage confirm ho gaya - high level. Policy check kar raha hun...", "Policy ke according full refund approve ho gaya! ₹349 refund process kar raha hun. 2-3 days mein account mein aa jayega."}, false, store.TicketResolved},
		{"replacement", reasoning.OfferReplacement, damaged, []string{PhotoReceived, "Damage confirm ho gaya - high level. Policy check kar raha hun...", ReplacementReply}, false, store.TicketResolved},
		{"escalate", reasoning.EscalateToAdmin, damaged, []string{PhotoReceived, "Damage confirm ho gaya - high level. Policy check kar raha hun...", AdminApprovalText}, true, store.TicketOpen},
		{"no damage", reasoning.ProcessRefund, photo.Analysis{DamageSeverity: photo.SeverityNone}, []string{PhotoReceived, NoDamageReply}, false, store.TicketOpen},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.rec, tc.analysis)
			sess := startDamageCase(t, f)

			res, err := f.agent.HandlePhoto(context.Background(), sess.ID, "crack.png", "image/png", pngData(t))
			if err != nil {
				t.Fatalf("handle photo: %v", err)
			}
			got := lastContents(res.Replies)
			if strings.Join(got, "|") != strings.Join(tc.replies, "|") {
				t.Fatalf("expected replies %v got %v", tc.replies, got)
			}
			if res.Session.AwaitingPhoto {
				t.Fatal("awaiting_photo must be cleared")
			}
			if tc.analysis.DamageDetected && f.decider.lastQuery != "photo damage high" {
				t.Fatalf("unexpected decision query %q", f.decider.lastQuery)
			}

			photos, err := f.db.ListPhotos("TKT9876")
			if err != nil || len(photos) != 1 || photos[0].AnalysisJSON == "" {
				t.Fatalf("photo not recorded: %v %+v", err, photos)
			}

			reqs, total, err := f.db.ListAdminRequests(store.AdminRequestQuery{})
			if err != nil {
				t.Fatalf("list admin requests: %v", err)
			}
			if tc.admin {
				if total != 1 || res.AdminReqID != reqs[0].RequestID || reqs[0].PolicyStatus != string(tc.rec) {
					t.Fatalf("expected one admin request, got %d %+v", total, reqs)
				}
				if len(f.events.events) != 1 || f.events.events[0].Type != EventAdminRequestCreated {
					t.Fatalf("expected admin event, got %+v", f.events.events)
				}
			} else if total != 0 {
				t.Fatalf("unexpected admin requests %+v", reqs)
			}

			ticket, err := f.db.GetTicket("TKT9876")
			if err != nil {
				t.Fatalf("get ticket: %v", err)
			}
			if ticket.Status != tc.status {
				t.Fatalf("expected ticket status %s got %s", tc.status, ticket.Status)
			}
		})
	}
}

func TestHandlePhotoRejections(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	fresh, _ := f.agent.StartSession()
	if _, err := f.agent.HandlePhoto(context.Background(), fresh.ID, "a.png", "image/png", pngData(t)); !errors.Is(err, ErrNoPendingPhoto) {
		t.Fatalf("expected ErrNoPendingPhoto, got %v", err)
	}

	sess := startDamageCase(t, f)
	res, err := f.agent.HandlePhoto(context.Background(), sess.ID, "notes.txt", "text/plain", []byte("hello there"))
	if err != nil {
		t.Fatalf("handle photo: %v", err)
	}
	if res.Validation.Valid || len(res.Validation.Errors) != 1 || res.Validation.Errors[0] != photo.ErrInvalidType {
		t.Fatalf("unexpected validation %+v", res.Validation)
	}
	still, _ := f.agent.Session(sess.ID)
	if !still.AwaitingPhoto {
		t.Fatal("invalid upload must keep the photo request open")
	}
}

func TestHandlePhotoAnalysisFailure(t *testing.T) {
	f := newFixture(t, reasoning.ProcessRefund, photo.Analysis{})
	f.agent.deps.Photos = fixedAnalyzer{err: errors.New("decode")}
	sess := startDamageCase(t, f)

	res, err := f.agent.HandlePhoto(context.Background(), sess.ID, "a.png", "image/png", pngData(t))
	if err != nil {
		t.Fatalf("handle photo: %v", err)
	}
	got := lastContents(res.Replies)
	if len(got) != 1 || got[0] != TechnicalProblem {
		t.Fatalf("expected technical problem reply, got %v", got)
	}
	if !res.Session.AwaitingPhoto {
		t.Fatal("failed analysis keeps the photo request open")
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("s1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 got %d", counter)
	}
	if len(k.locks) != 0 {
		t.Fatalf("expected idle locks to be released, got %d", len(k.locks))
	}
}
