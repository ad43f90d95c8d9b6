package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"looklike/internal/campaigns"
	"looklike/internal/db"
	"looklike/internal/geo"
	"looklike/internal/models"
	"looklike/internal/places"
	"looklike/internal/search"
	"looklike/internal/validation"
)

// jsonSuccess returns a 200 response with data wrapped in the standard envelope.
func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonCreated returns a 201 response with data wrapped in the standard envelope.
func jsonCreated(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}

// jsonError returns an error response with the given HTTP status code.
func jsonError(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

// errorResponse maps a domain error to its HTTP status and a message that
// names the failure. Anything unrecognised is logged and reported as 500.
func errorResponse(c fiber.Ctx, err error) error {
	status, message := classify(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", err,
		)
	}
	return jsonError(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, geo.ErrUnresolvableAddress):
		return fiber.StatusUnprocessableEntity, "address could not be resolved to a location"
	case errors.Is(err, search.ErrInvalidRadius),
		errors.Is(err, search.ErrInvalidFilters),
		errors.Is(err, search.ErrMissingReference),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, campaigns.ErrInvalidCampaign),
		errors.Is(err, validation.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, db.ErrDuplicateAssociation):
		return fiber.StatusConflict, db.ErrDuplicateAssociation.Error()
	case errors.Is(err, db.ErrNotFound):
		return fiber.StatusNotFound, notFoundMessage(err)
	case errors.Is(err, places.ErrSearchUnavailable):
		return fiber.StatusServiceUnavailable, "search provider is unavailable, try again shortly"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, db.ErrPersistence):
		return fiber.StatusInternalServerError, "failed to read or write prospect data"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{
		db.ErrAssociationNotFound,
		db.ErrReferenceClientNotFound,
		db.ErrProspectNotFound,
		db.ErrCampaignNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return db.ErrNotFound.Error()
}
