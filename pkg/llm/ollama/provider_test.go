package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"subchapter-tutor-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaDialogueKeepsHistory(t *testing.T) {
	var requests []ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   req.Model,
			Message: ollamaMessage{Role: "assistant", Content: "Antwort"},
			Done:    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	d, err := p.OpenDialogue(context.Background(), "Tutor", nil)
	require.NoError(t, err)

	_, err = d.Send(context.Background(), "erste Frage")
	require.NoError(t, err)
	_, err = d.Send(context.Background(), "zweite Frage")
	require.NoError(t, err)

	require.Len(t, requests, 2)
	second := requests[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, "system", second.Messages[0].Role)
	assert.Equal(t, "Tutor", second.Messages[0].Content)
	assert.Equal(t, "assistant", second.Messages[2].Role)
	assert.Equal(t, "zweite Frage", second.Messages[3].Content)
	assert.Equal(t, 64, second.Options.TopK)
	assert.InDelta(t, 0.4, second.Options.Temperature, 0.0001)
}

func TestOllamaFailedSendLeavesHistoryUntouched(t *testing.T) {
	fail := true
	var lastLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		lastLen = len(req.Messages)
		if fail {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Role: "assistant", Content: "ok"}})
	}))
	defer srv.Close()

	d, err := NewOllamaProvider(srv.URL, "llama3").OpenDialogue(context.Background(), "Tutor", nil)
	require.NoError(t, err)

	_, err = d.Send(context.Background(), "Frage")
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrGateway)

	fail = false
	reply, err := d.Send(context.Background(), "Frage")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 2, lastLen)
}
