package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sky-diorama/internal/diorama"
	"github.com/i474232898/sky-diorama/internal/logger"
	"github.com/i474232898/sky-diorama/internal/state"
	"github.com/i474232898/sky-diorama/internal/weather"
)

// Error kinds let clients tell failures apart without parsing messages.
const (
	KindValidation       = "validation"
	KindNotFound         = "not_found"
	KindAPIKeyRequired   = "api_key_required"
	KindNoImage          = "no_image"
	KindModelUnavailable = "model_unavailable"
	KindUpstream         = "upstream"
	KindRateLimited      = "rate_limited"
	KindInternal         = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// classify maps a service error to a status code and kind.
func classify(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch {
		case fe.Code == fiber.StatusTooManyRequests:
			return fe.Code, KindRateLimited
		case fe.Code == fiber.StatusNotFound:
			return fe.Code, KindNotFound
		case fe.Code < fiber.StatusInternalServerError:
			return fe.Code, KindValidation
		default:
			return fe.Code, KindInternal
		}
	}

	var upstream *diorama.UpstreamError
	switch {
	case errors.Is(err, diorama.ErrAPIKeyRequired):
		return fiber.StatusPreconditionFailed, KindAPIKeyRequired
	case errors.Is(err, state.ErrCityNotFound),
		errors.Is(err, weather.ErrUnknownCity),
		errors.Is(err, diorama.ErrNoArtifact):
		return fiber.StatusNotFound, KindNotFound
	case errors.Is(err, state.ErrNoWeather):
		return fiber.StatusConflict, KindValidation
	case errors.Is(err, diorama.ErrNoImage):
		return fiber.StatusUnprocessableEntity, KindNoImage
	case errors.Is(err, diorama.ErrModelUnavailable):
		return fiber.StatusBadGateway, KindModelUnavailable
	case errors.As(err, &upstream), errors.Is(err, weather.ErrFetchFailed):
		return fiber.StatusBadGateway, KindUpstream
	default:
		return fiber.StatusInternalServerError, KindInternal
	}
}

// NewErrorHandler returns a fiber.ErrorHandler that renders errors as ErrorResponse.
func NewErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		code, kind := classify(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err,
			)
		}
		return c.Status(code).JSON(ErrorResponse{
			Error:   true,
			Kind:    kind,
			Message: err.Error(),
		})
	}
}
