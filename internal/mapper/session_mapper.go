package mapper

import (
	"fmt"

	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/pkg/catalog"
	"subchapter-tutor-be/pkg/store"
)

const (
	noSubchapterTitle = "No Subchapter Selected"
	disabledInputHint = "Select a subchapter to enable chat"
	emptyCatalogHint  = "No valid subchapter files (e.g., '8_Topic_8.3 Subtopic.txt') found. Please check the folder and filenames."
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) SessionToView(s *store.Session) *dto.SessionView {
	if s == nil {
		return nil
	}

	view := &dto.SessionView{
		SessionID:     s.ID,
		State:         s.State,
		Selection:     s.Selection,
		ChattingAbout: noSubchapterTitle,
		Dialogue:      make([]dto.TurnView, 0, len(s.Dialogue)),
		InputEnabled:  s.InputEnabled(),
		InputHint:     disabledInputHint,
	}
	if !store.IsNone(s.Selection) {
		view.ChattingAbout = s.Selection
	}
	if view.InputEnabled {
		view.InputHint = fmt.Sprintf("Ask a question about %s...", s.Selection)
	}

	for _, t := range s.Dialogue {
		view.Dialogue = append(view.Dialogue, dto.TurnView{
			Role:      t.Role,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return view
}

func (m *SessionMapper) CatalogToList(c *catalog.Catalog) *dto.SubchapterListResponse {
	res := &dto.SubchapterListResponse{
		Placeholder: store.PlaceholderLabel,
		Subchapters: make([]dto.SubchapterItem, 0, c.Len()),
	}
	for _, e := range c.Entries() {
		res.Subchapters = append(res.Subchapters, dto.SubchapterItem{
			Label:       e.Name.Label,
			MainChapter: e.Name.MainChapter,
			Topic:       e.Name.Topic,
		})
	}
	if c.Len() == 0 {
		res.Hint = emptyCatalogHint
	}
	return res
}
