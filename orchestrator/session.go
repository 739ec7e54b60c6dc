// Copyright 2025 Octank Insurance
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-conversation state machine. A session is ACTIVE
// from creation until idle longer than the configured timeout, at which
// point any lookup evicts it lazily; there is no background sweep.
//
// Only the turn that owns a session mutates it. Overlapping turns on the
// same session are not coordinated: last write wins, a documented
// limitation of this design.
type Session struct {
	SessionID  string    `json:"session_id"`
	MemberID   string    `json:"member_id"`
	Member     Member    `json:"member"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	Messages    []Message `json:"messages"`
	TurnCount   int       `json:"turn_count"`
	ToolsCalled []string  `json:"tools_called"`

	CurrentIntent string `json:"current_intent"`
	CurrentAgent  string `json:"current_agent"`

	// Escalated is monotonic: once true it stays true for the session's
	// remaining lifetime.
	Escalated bool `json:"escalated"`

	SentimentHistory []Sentiment  `json:"sentiment_history"`
	RAGHistory       []RAGRecord  `json:"rag_history"`
	AuditLog         []AuditEntry `json:"audit_log"`
	ReviewQueue      []ReviewItem `json:"review_queue"`
}

// newSession builds a fresh session for the given member profile.
func newSession(member Member) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:  "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		MemberID:   member.MemberID,
		Member:     member,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Expired reports whether the session has been idle past timeout.
func (s *Session) Expired(timeout time.Duration) bool {
	return time.Since(s.LastActive) > timeout
}

// AddMessage appends to the conversation log and refreshes the activity
// timestamp. User messages increment the turn counter, maintaining the
// invariant turn_count == count of user messages.
func (s *Session) AddMessage(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
	s.LastActive = time.Now().UTC()
	if role == RoleUser {
		s.TurnCount++
	}
}

// History returns a copy of the conversation log.
func (s *Session) History() []Message {
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// CurrentSentiment returns the most recent sentiment, defaulting to neutral.
func (s *Session) CurrentSentiment() Sentiment {
	if len(s.SentimentHistory) == 0 {
		return SentimentNeutral
	}
	return s.SentimentHistory[len(s.SentimentHistory)-1]
}

// SessionSummary is the listing shape for active sessions.
type SessionSummary struct {
	SessionID  string `json:"session_id"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	TurnCount  int    `json:"turn_count"`
	Escalated  bool   `json:"escalated"`
}

// SessionStore abstracts session persistence so the in-process map can
// be swapped for a networked store without touching orchestration
// logic. Get performs lazy expiry: an expired session is evicted and
// reported as not found.
type SessionStore interface {
	// Create starts a session for the member, failing with
	// ErrMemberNotFound for unknown members.
	Create(memberID string) (*Session, error)

	// Get returns the live session or ErrSessionNotFound, evicting it
	// first when expired.
	Get(sessionID string) (*Session, error)

	// Save persists the session after a turn's mutations.
	Save(session *Session) error

	// List returns summaries of all non-expired sessions.
	List() []SessionSummary
}

// MemoryStore is the default in-process SessionStore: a mutex-guarded
// map with lazy expiry on read.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	directory *MemberDirectory
	timeout   time.Duration
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(directory *MemberDirectory, timeout time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*Session),
		directory: directory,
		timeout:   timeout,
	}
}

func (m *MemoryStore) Create(memberID string) (*Session, error) {
	member, err := m.directory.Get(memberID)
	if err != nil {
		return nil, err
	}

	session := newSession(member)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.SessionID] = session
	return session, nil
}

func (m *MemoryStore) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if session.Expired(m.timeout) {
		delete(m.sessions, sessionID)
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// Save is a no-op for the in-memory store: callers mutate the shared
// *Session directly.
func (m *MemoryStore) Save(session *Session) error {
	return nil
}

func (m *MemoryStore) List() []SessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SessionSummary, 0, len(m.sessions))
	for _, s := range m.sessions {
		if s.Expired(m.timeout) {
			continue
		}
		out = append(out, SessionSummary{
			SessionID:  s.SessionID,
			MemberID:   s.MemberID,
			MemberName: s.Member.Name,
			TurnCount:  s.TurnCount,
			Escalated:  s.Escalated,
		})
	}
	return out
}
