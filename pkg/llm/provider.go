package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message represents a dialogue turn in a provider-agnostic format
type Message struct {
	Role    string // "user" or "model"
	Content string
}

// Option allows for optional generation parameters.
type Option func(*Options)

type Options struct {
	Temperature      float64
	TopP             float64
	TopK             int
	MaxTokens        int
	ResponseMIMEType string
	Model            string // Override default model
}

// DefaultOptions are the tutoring generation settings.
func DefaultOptions() *Options {
	return &Options{
		Temperature:      0.4,
		TopP:             0.95,
		TopK:             64,
		MaxTokens:        8192,
		ResponseMIMEType: "text/plain",
	}
}

// Apply returns DefaultOptions with every option applied in order.
func Apply(options ...Option) *Options {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}
	return opts
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(p float64) Option {
	return func(o *Options) {
		o.TopP = p
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Dialogue is an open conversation with the model. Send appends the user
// text and the reply to the conversation only when the call succeeds.
type Dialogue interface {
	Send(ctx context.Context, text string) (string, error)
}

// Gateway opens dialogues against a chat backend.
type Gateway interface {
	// OpenDialogue starts a conversation seeded with a system instruction
	// and an optional prior history. It does not contact the model.
	OpenDialogue(ctx context.Context, systemInstruction string, history []Message, options ...Option) (Dialogue, error)
}

var ErrGateway = errors.New("chat gateway error")

// GatewayError wraps any failure of the chat backend.
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	return []error{ErrGateway, e.Err}
}

func NewGatewayError(provider, op string, err error) error {
	return &GatewayError{Provider: provider, Op: op, Err: err}
}
