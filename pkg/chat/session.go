package chat

import (
	"sync"

	"github.com/recipeu/agent/pkg/search"
)

// PendingKind distinguishes the two confirmation flows that can be open.
type PendingKind string

const (
	PendingDislike PendingKind = "dislike"
	PendingLedger  PendingKind = "ledger"
)

// PendingConfirmation is a search that was interrupted by a warning and is
// waiting on the user's yes/no. At most one is open per session.
type PendingConfirmation struct {
	Kind  PendingKind
	Query string
	// Items are the matched dislikes (dislike) or the conflicting
	// ledger ingredients (ledger).
	Items []string
}

// Session holds the per-connection dialog state. A session is owned by one
// websocket connection; the mutex only guards the read-side HTTP endpoint.
type Session struct {
	mu sync.RWMutex

	ID          string
	DBSessionID int64

	Profile Personalization
	Ledger  Ledger

	messages     []Message
	lastDocs     []search.Document
	lastResponse string

	tempAllowedDislikes []string
	pending             *PendingConfirmation
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

func (s *Session) AppendMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// RestoreHistory appends prior turns delivered at init.
func (s *Session) RestoreHistory(history []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, history...)
}

// RecentHistory returns up to n most recent turns.
func (s *Session) RecentHistory(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// LastRecipe returns the most recent assistant turn that is a recipe card.
func (s *Session) LastRecipe() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		msg := s.messages[i]
		if msg.Role == RoleAssistant && HasRecipeMarker(msg.Content) {
			return msg.Content, true
		}
	}
	return "", false
}

// LastRecipeImage returns the image of the most recent recipe card, if any.
func (s *Session) LastRecipeImage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		msg := s.messages[i]
		if msg.Role == RoleAssistant && HasRecipeMarker(msg.Content) {
			return msg.Image
		}
	}
	return ""
}

// HasRecipe reports whether any assistant turn so far carries a recipe card.
func (s *Session) HasRecipe() bool {
	_, ok := s.LastRecipe()
	return ok
}

func (s *Session) SetLastResult(docs []search.Document, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDocs = docs
	s.lastResponse = response
}

func (s *Session) LastDocuments() []search.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]search.Document, len(s.lastDocs))
	copy(out, s.lastDocs)
	return out
}

// AllowDislikes records dislikes the user explicitly accepted for this
// session, deduplicated.
func (s *Session) AllowDislikes(items []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.tempAllowedDislikes))
	for _, item := range s.tempAllowedDislikes {
		seen[item] = struct{}{}
	}
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		s.tempAllowedDislikes = append(s.tempAllowedDislikes, item)
	}
}

func (s *Session) AllowedDislikes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.tempAllowedDislikes))
	copy(out, s.tempAllowedDislikes)
	return out
}

func (s *Session) SetPending(p *PendingConfirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = p
}

// Pending returns the open confirmation without clearing it.
func (s *Session) Pending() *PendingConfirmation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

func (s *Session) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}
