package serverutils

import (
	"errors"
	"log"

	"ai-recall-be/internal/service"
	"ai-recall-be/pkg/run"
	"ai-recall-be/pkg/run/gate"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns service errors into HTTP responses so
// controllers can return them raw. Unknown errors become a 500 and are
// logged with the route that produced them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := statusForError(err)
		if status == fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
			return ctx.Status(status).JSON(ErrorResponse("Internal server error"))
		}
		return ctx.Status(status).JSON(ErrorResponse(err.Error()))
	}
}

func statusForError(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrRunNotFound),
		errors.Is(err, service.ErrPreviewNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, run.ErrSessionBusy),
		errors.Is(err, service.ErrNoPendingSelection):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrUnknownCandidate),
		errors.Is(err, service.ErrBadFrameEncoding),
		errors.Is(err, gate.ErrCount):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
