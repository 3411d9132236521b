package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/models"
	"github.com/bobby-s-dev/iweather/internal/services"
	"github.com/bobby-s-dev/iweather/internal/viewstate"
	"github.com/bobby-s-dev/iweather/pkg/client"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = validator.New()

// Defaults is the location used when a request names none.
type Defaults struct {
	City      string
	Latitude  float64
	Longitude float64
}

type Handler struct {
	favorites *services.FavoritesStore
	debouncer *services.Debouncer
	geocoder  geocode.Geocoder
	endpoints services.Endpoints
	executor  *client.Executor
	defaults  Defaults
	location  *time.Location
	logger    *zap.Logger
}

func NewHandler(
	favorites *services.FavoritesStore,
	debouncer *services.Debouncer,
	geocoder geocode.Geocoder,
	endpoints services.Endpoints,
	executor *client.Executor,
	defaults Defaults,
	location *time.Location,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		favorites: favorites,
		debouncer: debouncer,
		geocoder:  geocoder,
		endpoints: endpoints,
		executor:  executor,
		defaults:  defaults,
		location:  location,
		logger:    logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// GetFavorites handles GET /api/v1/favorites
func (h *Handler) GetFavorites(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"cities":  h.favorites.Cities(),
		"loading": h.favorites.IsLoading(),
		"success": true,
	})
}

// SearchFavorite handles POST /api/v1/favorites/search
func (h *Handler) SearchFavorite(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	err := h.favorites.PerformSearch(c.UserContext(), req.Query)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"cities":  h.favorites.Cities(),
			"success": true,
		})
	case errors.Is(err, services.ErrQueryTooShort), errors.Is(err, services.ErrInvalidCityName):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   err.Error(),
			"success": false,
		})
	case errors.Is(err, services.ErrCityNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   services.ErrCityNotFound.Error(),
			"query":   req.Query,
			"success": false,
		})
	default:
		h.logger.Error("Failed to add favorite city",
			zap.String("query", req.Query),
			zap.Error(err))
		return err
	}
}

// QueueSearch handles POST /api/v1/favorites/query
func (h *Handler) QueueSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	h.debouncer.SetQuery(req.Query)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"query":   req.Query,
		"success": true,
	})
}

// GetWeather handles GET /api/v1/weather
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	params, err := h.queryParams(c)
	if err != nil {
		return err
	}
	if err := validate.Struct(params); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Units must be one of metric, imperial or standard")
	}

	h.logger.Info("Fetching weather",
		zap.String("city", params.City),
		zap.String("lat", params.Latitude),
		zap.String("lon", params.Longitude))

	svc := services.NewWeatherService(h.endpoints, h.executor, h.logger)
	svc.SetParams(&params)

	snapshot, err := svc.Fetch(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to fetch weather",
			zap.String("city", params.City),
			zap.Error(err))

		code := fiber.StatusInternalServerError
		if errors.Is(err, client.ErrInternalServerError) || errors.Is(err, client.ErrBadRequest) {
			code = fiber.StatusBadGateway
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   "Failed to fetch weather data",
			"details": err.Error(),
			"success": false,
		})
	}

	return c.JSON(fiber.Map{
		"params":   params,
		"snapshot": snapshot,
		"view":     viewstate.New(snapshot, h.location).View(),
	})
}

// queryParams prefers explicit coordinates, then the geocoded city, then
// the configured default coordinates.
func (h *Handler) queryParams(c *fiber.Ctx) (models.WeatherQueryParams, error) {
	city := c.Query("city", h.defaults.City)

	var params models.WeatherQueryParams
	lat, lon := c.Query("lat"), c.Query("lon")
	if lat != "" || lon != "" {
		if _, err := strconv.ParseFloat(lat, 64); err != nil {
			return params, fiber.NewError(fiber.StatusBadRequest, "lat must be a number")
		}
		if _, err := strconv.ParseFloat(lon, 64); err != nil {
			return params, fiber.NewError(fiber.StatusBadRequest, "lon must be a number")
		}
		params = services.ForecastParams(city, nil, 0, 0)
		params.Latitude, params.Longitude = lat, lon
	} else {
		var place *geocode.Place
		places, err := h.geocoder.Resolve(c.UserContext(), city)
		if err != nil || len(places) == 0 {
			h.logger.Warn("Using default coordinates",
				zap.String("city", city),
				zap.Error(err))
		} else {
			place = &places[0]
		}
		params = services.ForecastParams(city, place, h.defaults.Latitude, h.defaults.Longitude)
	}

	params.Units = c.Query("units", params.Units)
	params.ExcludeFields = c.Query("exclude", params.ExcludeFields)
	return params, nil
}

// GetHealth handles GET /api/v1/health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
		"favorites": len(h.favorites.Cities()),
	})
}

var startTime = time.Now()
