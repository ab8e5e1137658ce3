package dto

import "time"

type TurnView struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionView is everything a client needs to render a tutoring session.
type SessionView struct {
	SessionID     string     `json:"session_id"`
	State         string     `json:"state"`
	Selection     string     `json:"selection"`
	ChattingAbout string     `json:"chatting_about"`
	Dialogue      []TurnView `json:"dialogue"`
	InputEnabled  bool       `json:"input_enabled"`
	InputHint     string     `json:"input_hint"`
	Error         string     `json:"error,omitempty"`
}

type CreateSessionResponse struct {
	Token   string       `json:"token"`
	Session *SessionView `json:"session"`
}

// SelectSubchapterRequest selects a label; an empty label or the
// placeholder clears the session.
type SelectSubchapterRequest struct {
	Label string `json:"label" validate:"max=512"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

type SubchapterItem struct {
	Label       string `json:"label"`
	MainChapter string `json:"main_chapter"`
	Topic       string `json:"topic"`
}

type SubchapterListResponse struct {
	Placeholder string           `json:"placeholder"`
	Subchapters []SubchapterItem `json:"subchapters"`
	Hint        string           `json:"hint,omitempty"`
}

// WsCommand is a client message on the session socket.
type WsCommand struct {
	Type  string `json:"type" validate:"required,oneof=select message"`
	Label string `json:"label" validate:"max=512"`
	Text  string `json:"text" validate:"max=20000"`
}
