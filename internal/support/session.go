package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"support-assistant/backend/internal/store"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a chat transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the server-side state of one chat.
type Session struct {
	ID            string       `json:"session_id"`
	Messages      []Message    `json:"messages"`
	CurrentOrder  *store.Order `json:"current_order,omitempty"`
	CurrentTicket string       `json:"current_ticket,omitempty"`
	IssueType     string       `json:"issue_type,omitempty"`
	AwaitingPhoto bool         `json:"awaiting_photo"`
	CreatedAt     time.Time    `json:"created_at"`
}

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists serialized session state.
type SessionStore interface {
	SaveSession(sessionID, stateJSON string) error
	LoadSession(sessionID string) (string, error)
}

func (s *Session) append(role, content string) Message {
	msg := Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
	s.Messages = append(s.Messages, msg)
	return msg
}

// recent returns at most the last n messages.
func (s *Session) recent(n int) []Message {
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

func loadSession(st SessionStore, id string) (*Session, error) {
	raw, err := st.LoadSession(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func saveSession(st SessionStore, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := st.SaveSession(sess.ID, string(payload)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// keyedMutex serializes work per key and drops idle entries.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
