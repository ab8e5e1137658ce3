package serverutils

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"subchapter-tutor-be/pkg/contentstore"
	"subchapter-tutor-be/pkg/llm"
	"subchapter-tutor-be/pkg/store"
	"subchapter-tutor-be/pkg/tutor"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrSessionNotFound, fiber.StatusUnauthorized},
		{fmt.Errorf("%w: %q", tutor.ErrCatalogLookup, "x"), fiber.StatusNotFound},
		{tutor.ErrNotActive, fiber.StatusConflict},
		{tutor.ErrEmptyMessage, fiber.StatusBadRequest},
		{&contentstore.Error{Kind: contentstore.ErrNotFound}, fiber.StatusNotFound},
		{&contentstore.Error{Kind: contentstore.ErrAccessDenied}, fiber.StatusForbidden},
		{&contentstore.Error{Kind: contentstore.ErrDecode}, fiber.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %q", tutor.ErrEmptyContent, "x"), fiber.StatusUnprocessableEntity},
		{&contentstore.Error{Kind: contentstore.ErrBackendUnavailable}, fiber.StatusServiceUnavailable},
		{llm.NewGatewayError("gemini", "send", errors.New("x")), fiber.StatusBadGateway},
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestSessionTokensRoundTrip(t *testing.T) {
	tokens := NewSessionTokens("0123456789abcdef", time.Hour)

	tok, err := tokens.Issue("session-1")
	require.NoError(t, err)

	id, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)

	_, err = NewSessionTokens("another-secret-value", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestSessionTokensRejectExpired(t *testing.T) {
	tokens := NewSessionTokens("0123456789abcdef", -time.Minute)
	tok, err := tokens.Issue("session-1")
	require.NoError(t, err)

	_, err = tokens.Parse(tok)
	assert.Error(t, err)
}

func TestSessionMiddleware(t *testing.T) {
	tokens := NewSessionTokens("0123456789abcdef", time.Hour)
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/me", tokens.Middleware, func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals(SessionLocalKey).(string))
	})

	tok, _ := tokens.Issue("abc")

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", string(body))

	resp, err = app.Test(httptest.NewRequest("GET", "/me?token="+tok, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestErrorHandlerMiddlewareRendersDomainErrors(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/fail", func(ctx *fiber.Ctx) error {
		return tutor.ErrNotActive
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), tutor.ErrNotActive.Error())
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Text string `validate:"required,max=5"`
	}

	assert.NoError(t, ValidateRequest(req{Text: "ok"}))

	err := ValidateRequest(req{})
	var fiberErr *fiber.Error
	require.ErrorAs(t, err, &fiberErr)
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)
	assert.Contains(t, fiberErr.Message, "Text is required")

	err = ValidateRequest(req{Text: "too long"})
	require.ErrorAs(t, err, &fiberErr)
	assert.Contains(t, fiberErr.Message, "max=5")
}
