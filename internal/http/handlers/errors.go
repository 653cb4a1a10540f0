package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tripplanner/backend/internal/http/dto"
	"github.com/tripplanner/backend/internal/middleware"
	"github.com/tripplanner/backend/internal/services"
	"go.uber.org/zap"
)

// respondError maps service errors to HTTP statuses. Unexpected errors are
// logged and hidden behind a generic message.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, services.ErrRecordNotFound):
		status, msg = fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrInvalidSource), errors.Is(err, services.ErrInvalidRange):
		status, msg = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrExportTooLarge):
		status, msg = fiber.StatusRequestEntityTooLarge, err.Error()
	default:
		log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)})
}
