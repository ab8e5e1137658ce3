// Package tutor drives the subchapter selection and dialogue lifecycle of a
// single session.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/pkg/catalog"
	"subchapter-tutor-be/pkg/contentstore"
	"subchapter-tutor-be/pkg/llm"
	"subchapter-tutor-be/pkg/prompt"
	"subchapter-tutor-be/pkg/store"
)

const (
	// OpeningMessage asks the model for its greeting right after a dialogue opens.
	OpeningMessage = "Please introduce yourself..."
	// FallbackGreeting replaces the opening turn when the model cannot produce one.
	FallbackGreeting = "Hello! I'm ready to help..."

	sendErrorFormat = "Sorry, I encountered an error: %v"
)

var (
	ErrCatalogLookup = errors.New("subchapter not found in catalog")
	ErrNotActive     = errors.New("no subchapter loaded")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrEmptyContent  = errors.New("subchapter content is empty")
)

// CatalogSource yields the current catalog snapshot.
type CatalogSource interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

type Options struct {
	OpeningTurn    bool
	LLMTimeout     time.Duration
	StorageTimeout time.Duration
	Generation     []llm.Option
	Now            func() time.Time
}

// Controller is stateless; every call operates on the session it is given.
// Callers must serialize calls for the same session.
type Controller struct {
	catalogs CatalogSource
	content  contentstore.Store
	gateway  llm.Gateway
	logger   logger.ILogger
	opts     Options
}

func NewController(catalogs CatalogSource, content contentstore.Store, gateway llm.Gateway, log logger.ILogger, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		catalogs: catalogs,
		content:  content,
		gateway:  gateway,
		logger:   log,
		opts:     opts,
	}
}

// SelectUnit resets the session and, unless label is the none-sentinel,
// loads the subchapter and opens a fresh dialogue. Any failure leaves the
// session reset and idle with no selection, and the error is returned.
func (c *Controller) SelectUnit(ctx context.Context, s *store.Session, label string) error {
	c.reset(s)

	if store.IsNone(label) {
		return nil
	}

	s.Selection = label
	c.transition(s, store.StateLoading)

	text, err := c.loadText(ctx, label)
	if err != nil {
		return c.fail(s, err)
	}

	instruction := prompt.Compose(label, text)

	openCtx, cancel := c.withTimeout(ctx, c.opts.LLMTimeout)
	dialogue, err := c.gateway.OpenDialogue(openCtx, instruction, nil, c.opts.Generation...)
	cancel()
	if err != nil {
		return c.fail(s, asGatewayError("open dialogue", err))
	}

	s.ContentText = text
	s.Chat = dialogue

	if c.opts.OpeningTurn {
		s.Append(store.RoleAssistant, c.openingTurn(ctx, s, dialogue), c.opts.Now())
	}

	c.transition(s, store.StateActive)
	return nil
}

// SendMessage forwards text on the open dialogue. A gateway failure is
// recorded as an assistant turn and the session stays active; the error is
// still returned for logging.
func (c *Controller) SendMessage(ctx context.Context, s *store.Session, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if !s.InputEnabled() {
		return ErrNotActive
	}

	s.Append(store.RoleUser, text, c.opts.Now())

	sendCtx, cancel := c.withTimeout(ctx, c.opts.LLMTimeout)
	reply, err := s.Chat.Send(sendCtx, text)
	cancel()
	if err != nil {
		err = asGatewayError("send", err)
		s.Append(store.RoleAssistant, fmt.Sprintf(sendErrorFormat, err), c.opts.Now())
		c.logger.Error("TUTOR", "Chat gateway send failed", map[string]interface{}{
			"session_id": s.ID,
			"selection":  s.Selection,
			"error":      err.Error(),
		})
		return err
	}

	s.Append(store.RoleAssistant, reply, c.opts.Now())
	return nil
}

// Reset drops the selection, dialogue and handle. It is what selecting the
// none-sentinel does.
func (c *Controller) Reset(s *store.Session) {
	c.reset(s)
}

func (c *Controller) loadText(ctx context.Context, label string) (string, error) {
	storeCtx, cancel := c.withTimeout(ctx, c.opts.StorageTimeout)
	defer cancel()

	cat, err := c.catalogs.Catalog(storeCtx)
	if err != nil {
		return "", err
	}

	entry, ok := cat.Lookup(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCatalogLookup, label)
	}

	text, err := c.content.FetchText(storeCtx, entry.Unit)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyContent, label)
	}
	return text, nil
}

func (c *Controller) openingTurn(ctx context.Context, s *store.Session, dialogue llm.Dialogue) string {
	sendCtx, cancel := c.withTimeout(ctx, c.opts.LLMTimeout)
	defer cancel()

	greeting, err := dialogue.Send(sendCtx, OpeningMessage)
	if err != nil {
		c.logger.Warn("TUTOR", "Could not get opening turn, using fallback greeting", map[string]interface{}{
			"session_id": s.ID,
			"selection":  s.Selection,
			"error":      err.Error(),
		})
		return FallbackGreeting
	}
	return greeting
}

func (c *Controller) reset(s *store.Session) {
	if closer, ok := s.Chat.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Warn("TUTOR", "Failed to close previous dialogue", map[string]interface{}{
				"session_id": s.ID,
				"error":      err.Error(),
			})
		}
	}

	s.Chat = nil
	s.ContentText = ""
	s.Dialogue = []store.Turn{}
	s.Selection = store.NoSelection
	c.transition(s, store.StateIdle)
}

func (c *Controller) fail(s *store.Session, err error) error {
	label := s.Selection
	c.transition(s, store.StateFailed)
	c.logger.Error("TUTOR", "Failed to load subchapter", map[string]interface{}{
		"session_id": s.ID,
		"selection":  label,
		"error":      err.Error(),
	})
	c.reset(s)
	return err
}

func (c *Controller) transition(s *store.Session, to string) {
	if s.State != to {
		c.logger.Debug("TUTOR", "Session state change", map[string]interface{}{
			"session_id": s.ID,
			"from":       s.State,
			"to":         to,
		})
	}
	s.State = to
	s.UpdatedAt = c.opts.Now()
}

func (c *Controller) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func asGatewayError(op string, err error) error {
	if errors.Is(err, llm.ErrGateway) {
		return err
	}
	return llm.NewGatewayError("gateway", op, err)
}
