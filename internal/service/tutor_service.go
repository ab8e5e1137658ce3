package service

import (
	"context"
	"errors"
	"time"

	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/internal/mapper"
	"subchapter-tutor-be/internal/pkg/logger"
	"subchapter-tutor-be/internal/repository/memory"
	"subchapter-tutor-be/pkg/catalog"
	"subchapter-tutor-be/pkg/events"
	"subchapter-tutor-be/pkg/llm"
	"subchapter-tutor-be/pkg/store"
	"subchapter-tutor-be/pkg/tutor"

	"github.com/google/uuid"
)

// CatalogManager is the cached catalog the service reads and refreshes.
type CatalogManager interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
	Rebuild(ctx context.Context) (*catalog.Catalog, error)
	Invalidate()
}

// ContentInvalidator drops memoized unit texts.
type ContentInvalidator interface {
	Invalidate(ctx context.Context) error
}

// SessionNotifier pushes fresh session views to connected clients.
type SessionNotifier interface {
	NotifySession(sessionID string, view *dto.SessionView)
}

type ITutorService interface {
	CreateSession(ctx context.Context) (*dto.SessionView, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionView, error)
	ListSubchapters(ctx context.Context) (*dto.SubchapterListResponse, error)
	SelectSubchapter(ctx context.Context, sessionID string, label string) (*dto.SessionView, error)
	SendMessage(ctx context.Context, sessionID string, text string) (*dto.SessionView, error)
	EndSession(ctx context.Context, sessionID string) error
	RefreshCatalog(ctx context.Context) (*dto.SubchapterListResponse, error)
	HandleCatalogEvent(ctx context.Context, event events.Event) error
	ActiveSessions() int
}

type tutorService struct {
	controller   *tutor.Controller
	catalogs     CatalogManager
	contentCache ContentInvalidator
	sessions     *memory.SessionRepository
	publisher    IPublisherService
	notifier     SessionNotifier
	mapper       *mapper.SessionMapper
	logger       logger.ILogger
	instanceID   string
}

// NewTutorService wires the controller to per-session storage. contentCache
// and notifier may be nil.
func NewTutorService(
	controller *tutor.Controller,
	catalogs CatalogManager,
	contentCache ContentInvalidator,
	sessions *memory.SessionRepository,
	publisher IPublisherService,
	notifier SessionNotifier,
	log logger.ILogger,
	instanceID string,
) ITutorService {
	s := &tutorService{
		controller:   controller,
		catalogs:     catalogs,
		contentCache: contentCache,
		sessions:     sessions,
		publisher:    publisher,
		notifier:     notifier,
		mapper:       mapper.NewSessionMapper(),
		logger:       log,
		instanceID:   instanceID,
	}
	sessions.SetOnEvicted(s.onEvicted)
	return s
}

func (s *tutorService) CreateSession(ctx context.Context) (*dto.SessionView, error) {
	sess := store.NewSession(uuid.NewString(), time.Now())
	s.sessions.Save(&memory.SessionEntry{Session: sess})

	s.publish(ctx, events.SessionCreated, map[string]interface{}{"session_id": sess.ID})
	s.logger.Info("TUTOR", "Session created", map[string]interface{}{"session_id": sess.ID})

	return s.mapper.SessionToView(sess), nil
}

func (s *tutorService) GetSession(ctx context.Context, sessionID string) (*dto.SessionView, error) {
	entry, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.Unlock()

	s.sessions.Save(entry)
	return s.mapper.SessionToView(entry.Session), nil
}

func (s *tutorService) ListSubchapters(ctx context.Context) (*dto.SubchapterListResponse, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.mapper.CatalogToList(cat), nil
}

func (s *tutorService) SelectSubchapter(ctx context.Context, sessionID string, label string) (*dto.SessionView, error) {
	entry, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.Unlock()

	sess := entry.Session
	selectErr := s.controller.SelectUnit(ctx, sess, label)
	s.sessions.Save(entry)

	view := s.mapper.SessionToView(sess)
	switch {
	case selectErr != nil:
		view.Error = selectErr.Error()
		s.publish(ctx, events.SubchapterLoadFailed, map[string]interface{}{
			"session_id": sessionID,
			"label":      label,
			"error":      selectErr.Error(),
		})
	case store.IsNone(label):
		s.publish(ctx, events.SessionReset, map[string]interface{}{"session_id": sessionID})
	default:
		s.publish(ctx, events.SubchapterSelected, map[string]interface{}{
			"session_id": sessionID,
			"label":      label,
		})
	}

	s.notify(view)
	if selectErr != nil {
		return view, selectErr
	}
	return view, nil
}

// SendMessage reports gateway failures inside the view, not as an error:
// the failed exchange is part of the dialogue and the session stays usable.
func (s *tutorService) SendMessage(ctx context.Context, sessionID string, text string) (*dto.SessionView, error) {
	entry, err := s.lock(sessionID)
	if err != nil {
		return nil, err
	}
	defer entry.Unlock()

	sess := entry.Session
	sendErr := s.controller.SendMessage(ctx, sess, text)
	if sendErr != nil && !errors.Is(sendErr, llm.ErrGateway) {
		return nil, sendErr
	}
	s.sessions.Save(entry)

	view := s.mapper.SessionToView(sess)
	if sendErr != nil {
		view.Error = sendErr.Error()
		s.publish(ctx, events.MessageFailed, map[string]interface{}{
			"session_id": sessionID,
			"label":      sess.Selection,
			"error":      sendErr.Error(),
		})
	} else {
		s.publish(ctx, events.MessageSent, map[string]interface{}{
			"session_id": sessionID,
			"label":      sess.Selection,
			"turns":      len(sess.Dialogue),
		})
	}

	s.notify(view)
	return view, nil
}

func (s *tutorService) EndSession(ctx context.Context, sessionID string) error {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return store.ErrSessionNotFound
	}
	s.sessions.Delete(sessionID)
	return nil
}

func (s *tutorService) RefreshCatalog(ctx context.Context) (*dto.SubchapterListResponse, error) {
	if s.contentCache != nil {
		if err := s.contentCache.Invalidate(ctx); err != nil {
			s.logger.Warn("TUTOR", "Failed to invalidate content cache", map[string]interface{}{"error": err.Error()})
		}
	}

	cat, err := s.catalogs.Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CatalogRebuilt, map[string]interface{}{
		"instance_id": s.instanceID,
		"backend":     cat.Identity(),
		"labels":      cat.Len(),
	})
	return s.mapper.CatalogToList(cat), nil
}

// HandleCatalogEvent drops local caches when another instance rebuilt the
// catalog.
func (s *tutorService) HandleCatalogEvent(ctx context.Context, event events.Event) error {
	if event.EventType() != events.CatalogRebuilt {
		return nil
	}
	if origin, _ := event.Payload()["instance_id"].(string); origin == s.instanceID {
		return nil
	}

	s.catalogs.Invalidate()
	if s.contentCache != nil {
		if err := s.contentCache.Invalidate(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("TUTOR", "Catalog invalidated by remote rebuild", event.Payload())
	return nil
}

func (s *tutorService) ActiveSessions() int {
	return s.sessions.Count()
}

// lock returns the live entry with its lock held.
func (s *tutorService) lock(sessionID string) (*memory.SessionEntry, error) {
	entry, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	entry.Lock()
	if entry.Closed {
		entry.Unlock()
		return nil, store.ErrSessionNotFound
	}
	return entry, nil
}

func (s *tutorService) onEvicted(entry *memory.SessionEntry) {
	entry.Lock()
	defer entry.Unlock()
	if entry.Closed {
		return
	}

	entry.Closed = true
	s.controller.Reset(entry.Session)

	s.publish(context.Background(), events.SessionEnded, map[string]interface{}{"session_id": entry.Session.ID})
	s.logger.Info("TUTOR", "Session ended", map[string]interface{}{"session_id": entry.Session.ID})
}

func (s *tutorService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	// Events are auxiliary; a failure never fails the request.
	if err := s.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("TUTOR", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func (s *tutorService) notify(view *dto.SessionView) {
	if s.notifier != nil {
		s.notifier.NotifySession(view.SessionID, view)
	}
}
