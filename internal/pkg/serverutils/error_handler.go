package serverutils

import (
	"errors"

	"subchapter-tutor-be/pkg/contentstore"
	"subchapter-tutor-be/pkg/llm"
	"subchapter-tutor-be/pkg/store"
	"subchapter-tutor-be/pkg/tutor"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, store.ErrSessionNotFound):
		return fiber.StatusUnauthorized
	case errors.Is(err, tutor.ErrCatalogLookup):
		return fiber.StatusNotFound
	case errors.Is(err, tutor.ErrNotActive):
		return fiber.StatusConflict
	case errors.Is(err, tutor.ErrEmptyMessage):
		return fiber.StatusBadRequest
	case errors.Is(err, contentstore.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, contentstore.ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, contentstore.ErrDecode), errors.Is(err, tutor.ErrEmptyContent):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, contentstore.ErrBackendUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, llm.ErrGateway):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware renders any error returned down the chain as an
// ErrorResponse.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
