package store

import (
	"errors"
	"time"

	"subchapter-tutor-be/pkg/llm"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// NoSelection is the none-sentinel for Session.Selection.
const NoSelection = ""

// PlaceholderLabel is what clients show in the selector before any subchapter.
// Selecting it is equivalent to selecting NoSelection.
const PlaceholderLabel = "-- Select a Subchapter --"

const (
	StateIdle    = "IDLE"
	StateLoading = "LOADING"
	StateActive  = "ACTIVE"
	StateFailed  = "FAILED"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one rendered dialogue entry.
type Turn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents the tutoring state of one user session in memory
type Session struct {
	ID        string `json:"id"`
	Selection string `json:"selection"`
	State     string `json:"state"` // "IDLE" | "LOADING" | "ACTIVE" | "FAILED"

	// Present together or not at all.
	ContentText string       `json:"-"`
	Chat        llm.Dialogue `json:"-"`

	Dialogue []Turn `json:"dialogue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Selection: NoSelection,
		State:     StateIdle,
		Dialogue:  []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsNone reports whether label is either form of the none-sentinel.
func IsNone(label string) bool {
	return label == NoSelection || label == PlaceholderLabel
}

// HasContent reports whether a subchapter is loaded. Content and the
// dialogue handle are committed together, so the handle is the witness.
func (s *Session) HasContent() bool {
	return s.Chat != nil
}

// InputEnabled mirrors the rule that chat input is only accepted in an
// active session with a real selection.
func (s *Session) InputEnabled() bool {
	return s.State == StateActive && !IsNone(s.Selection) && s.Chat != nil
}

func (s *Session) Append(role, text string, now time.Time) {
	s.Dialogue = append(s.Dialogue, Turn{Role: role, Text: text, CreatedAt: now})
	s.UpdatedAt = now
}
