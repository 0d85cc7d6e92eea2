package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/i474232898/sky-diorama/internal/diorama"
	"github.com/i474232898/sky-diorama/internal/state"
	"github.com/i474232898/sky-diorama/internal/weather"
)

var validate = validator.New()

// Services bundles what the handlers need.
type Services struct {
	Weather  *weather.Service
	Dioramas *diorama.Service
	State    *state.State

	// GenerateLimit caps diorama generations per client per minute. Zero disables the limiter.
	GenerateLimit int
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sky-diorama",
		})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/cities/search", func(c *fiber.Ctx) error {
		results := svc.Weather.SearchCities(c.UserContext(), c.Query("q"))
		return c.JSON(fiber.Map{"results": results})
	})

	v1.Get("/cities", func(c *fiber.Ctx) error {
		cur, _ := svc.State.Current()
		return c.JSON(fiber.Map{
			"cities":        svc.State.Cities(),
			"currentCityId": cur.ID,
		})
	})

	v1.Post("/cities", func(c *fiber.Ctx) error {
		var req selectCityRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}

		loc, snap, err := svc.Weather.Select(c.UserContext(), req.toResult())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"city": loc, "weather": snap})
	})

	v1.Post("/cities/locate", func(c *fiber.Ctx) error {
		var req coordinatesRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}

		loc, snap, err := svc.Weather.Locate(c.UserContext(), *req.Lat, *req.Lon)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"city": loc, "weather": snap})
	})

	v1.Put("/cities/current", func(c *fiber.Ctx) error {
		var req currentCityRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}

		snap, err := svc.Weather.View(c.UserContext(), req.ID)
		if err != nil {
			return err
		}
		loc, _ := svc.State.City(req.ID)
		return c.JSON(fiber.Map{"city": loc, "weather": snap})
	})

	v1.Delete("/cities/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !svc.State.RemoveCity(id) {
			return fmt.Errorf("%w: %s", state.ErrCityNotFound, id)
		}
		if err := svc.Dioramas.Delete(c.UserContext(), id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/weather/:id", func(c *fiber.Ctx) error {
		snap, err := svc.Weather.Ensure(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(snap)
	})

	generate := []fiber.Handler{}
	if svc.GenerateLimit > 0 {
		generate = append(generate, limiter.New(limiter.Config{
			Max:        svc.GenerateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many diorama requests, slow down")
			},
		}))
	}
	generate = append(generate, func(c *fiber.Ctx) error {
		meta, err := svc.Dioramas.Generate(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(meta)
	})
	v1.Post("/dioramas/:id", generate...)

	v1.Get("/dioramas/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		meta, ok := svc.State.Diorama(id)
		if !ok {
			return fmt.Errorf("%w: %s", diorama.ErrNoArtifact, id)
		}
		return c.JSON(fiber.Map{
			"diorama":     meta,
			"placeholder": diorama.DemoGradient(meta.Condition, meta.IsDay),
		})
	})

	v1.Get("/dioramas/:id/image", func(c *fiber.Ctx) error {
		art, err := svc.Dioramas.Image(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}

		disposition := "inline"
		if c.QueryBool("download") {
			disposition = "attachment"
		}
		c.Set(fiber.HeaderContentType, art.MIMEType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, art.Filename))
		return c.Send(art.Data)
	})

	v1.Get("/dioramas/:id/thumbnail", func(c *fiber.Ctx) error {
		width, err := parseWidth(c.Query("w"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		thumb, err := svc.Dioramas.Thumbnail(c.UserContext(), c.Params("id"), width)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "image/jpeg")
		return c.Send(thumb)
	})

	v1.Delete("/dioramas/:id", func(c *fiber.Ctx) error {
		if err := svc.Dioramas.Delete(c.UserContext(), c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/dioramas", func(c *fiber.Ctx) error {
		if err := svc.Dioramas.ClearAll(c.UserContext()); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/cache", func(c *fiber.Ctx) error {
		return c.JSON(svc.Dioramas.Stats(c.UserContext()))
	})

	v1.Put("/settings/api-key", func(c *fiber.Ctx) error {
		var req apiKeyRequest
		if err := bindBody(c, &req); err != nil {
			return err
		}

		svc.State.SetAPIKey(req.APIKey)
		svc.State.SetUseCustomKey(true)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/settings/api-key", func(c *fiber.Ctx) error {
		svc.State.SetAPIKey("")
		svc.State.SetUseCustomKey(false)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(svc.State.Snapshot())
	})

	v1.Delete("/state/error", func(c *fiber.Ctx) error {
		svc.State.SetError("")
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// selectCityRequest is a search result chosen by the client.
type selectCityRequest struct {
	Name        string   `json:"name" validate:"required"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Admin1      string   `json:"admin1"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (r selectCityRequest) toResult() weather.GeocodingResult {
	return weather.GeocodingResult{
		Name:        r.Name,
		Country:     r.Country,
		CountryCode: r.CountryCode,
		Admin1:      r.Admin1,
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
	}
}

type coordinatesRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

type currentCityRequest struct {
	ID string `json:"id" validate:"required"`
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required"`
}

func bindBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// parseWidth accepts an empty value, meaning the default width.
func parseWidth(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	w, err := strconv.Atoi(s)
	if err != nil || w <= 0 {
		return 0, errors.New("w must be a positive integer")
	}
	return w, nil
}
