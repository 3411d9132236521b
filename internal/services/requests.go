package services

import (
	"strconv"
	"strings"

	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/models"
	"github.com/bobby-s-dev/iweather/pkg/client"
)

// Fallbacks used when a request is built without parameters.
const (
	DefaultLatitude      = "51.4514278"
	DefaultLongitude     = "-1.078448"
	DefaultExcludeFields = "minutely"
	DefaultUnits         = "metric"
	DefaultCity          = "London"
)

// Endpoints holds the OpenWeather URL roots and the injected API key.
type Endpoints struct {
	BaseURL string
	GeoURL  string
	APIKey  string
}

func (e Endpoints) ForecastTemplate() string {
	return e.BaseURL + "/onecall?lat={latitude}&lon={longitude}&appid=" + e.APIKey + "&exclude={excludeFields}&units={units}"
}

func (e Endpoints) CityValidationTemplate() string {
	return e.GeoURL + "/direct?q={CityID}&limit=5&appid=" + e.APIKey
}

// BuildForecastRequest fills the forecast template by literal replacement.
// Values are not escaped here; the executor encodes at dispatch.
func BuildForecastRequest(template string, params *models.WeatherQueryParams) client.RequestDescriptor {
	path := template
	if params != nil {
		path = strings.ReplaceAll(path, "{latitude}", params.Latitude)
		path = strings.ReplaceAll(path, "{longitude}", params.Longitude)
		path = strings.ReplaceAll(path, "{excludeFields}", params.ExcludeFields)
		path = strings.ReplaceAll(path, "{units}", params.Units)
	} else {
		path = strings.ReplaceAll(path, "{latitude}", DefaultLatitude)
		path = strings.ReplaceAll(path, "{longitude}", DefaultLongitude)
		path = strings.ReplaceAll(path, "{excludeFields}", DefaultExcludeFields)
		path = strings.ReplaceAll(path, "{units}", DefaultUnits)
	}

	return client.NewGetRequest(path, client.RequestWeatherForecast)
}

// BuildCityValidationRequest fills {CityID}, falling back to DefaultCity.
func BuildCityValidationRequest(template, city string) client.RequestDescriptor {
	if city == "" {
		city = DefaultCity
	}
	path := strings.ReplaceAll(template, "{CityID}", city)

	return client.NewGetRequest(path, client.RequestCityValidation)
}

// ForecastParams builds the query for a city. Without a resolved place the
// given fallback coordinates are used.
func ForecastParams(city string, place *geocode.Place, fallbackLat, fallbackLon float64) models.WeatherQueryParams {
	lat, lon := fallbackLat, fallbackLon
	if place != nil {
		lat, lon = place.Latitude, place.Longitude
	}

	return models.WeatherQueryParams{
		City:          city,
		Latitude:      strconv.FormatFloat(lat, 'f', -1, 64),
		Longitude:     strconv.FormatFloat(lon, 'f', -1, 64),
		ExcludeFields: DefaultExcludeFields,
		Units:         DefaultUnits,
	}
}
