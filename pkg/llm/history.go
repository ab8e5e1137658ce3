package llm

import (
	"context"
	"errors"
	"sync"
)

// ChatFunc performs one stateless chat completion over the full history.
// The first message carries the system instruction when one is set.
type ChatFunc func(ctx context.Context, system string, history []Message, opts *Options) (string, error)

// historyDialogue keeps the conversation on the client for backends that
// have no server-side chat sessions.
type historyDialogue struct {
	mu       sync.Mutex
	provider string
	chat     ChatFunc
	system   string
	history  []Message
	opts     *Options
}

func NewHistoryDialogue(provider string, chat ChatFunc, system string, history []Message, opts *Options) Dialogue {
	return &historyDialogue{
		provider: provider,
		chat:     chat,
		system:   system,
		history:  append([]Message(nil), history...),
		opts:     opts,
	}
}

func (d *historyDialogue) Send(ctx context.Context, text string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	turns := make([]Message, 0, len(d.history)+1)
	turns = append(turns, d.history...)
	turns = append(turns, Message{Role: RoleUser, Content: text})

	reply, err := d.chat(ctx, d.system, turns, d.opts)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			return "", err
		}
		return "", NewGatewayError(d.provider, "send", err)
	}

	d.history = append(turns, Message{Role: RoleModel, Content: reply})
	return reply, nil
}
