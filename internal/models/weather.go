package models

import "github.com/google/uuid"

const (
	HourlySlots = 24
	DailySlots  = 8
)

// WeatherSnapshot is the decoded One Call payload.
type WeatherSnapshot struct {
	Current Weather        `json:"current"`
	Hourly  []Weather      `json:"hourly"`
	Daily   []WeatherDaily `json:"daily"`
}

// NewWeatherSnapshot returns a zero snapshot with placeholder hourly and
// daily rows so callers can iterate without nil checks.
func NewWeatherSnapshot() WeatherSnapshot {
	return WeatherSnapshot{
		Hourly: make([]Weather, HourlySlots),
		Daily:  make([]WeatherDaily, DailySlots),
	}
}

type Weather struct {
	Date          float64         `json:"dt"`
	Temperature   float64         `json:"temp"`
	FeelsLike     float64         `json:"feels_like"`
	Pressure      int             `json:"pressure"`
	Humidity      int             `json:"humidity"`
	DewPoint      float64         `json:"dew_point"`
	Clouds        int             `json:"clouds"`
	WindSpeed     float64         `json:"wind_speed"`
	WindDirection int             `json:"wind_deg"`
	Conditions    []WeatherDetail `json:"weather"`
}

// FirstCondition returns the leading condition, if any.
func (w Weather) FirstCondition() (WeatherDetail, bool) {
	if len(w.Conditions) == 0 {
		return WeatherDetail{}, false
	}
	return w.Conditions[0], true
}

type WeatherDetail struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type WeatherDaily struct {
	Date        float64         `json:"dt"`
	Temperature Temperature     `json:"temp"`
	Conditions  []WeatherDetail `json:"weather"`
}

func (w WeatherDaily) FirstCondition() (WeatherDetail, bool) {
	if len(w.Conditions) == 0 {
		return WeatherDetail{}, false
	}
	return w.Conditions[0], true
}

type Temperature struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// WeatherQueryParams fills the forecast and city validation templates.
type WeatherQueryParams struct {
	City          string `json:"city"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	ExcludeFields string `json:"excludeFields"`
	Units         string `json:"units" validate:"omitempty,oneof=metric imperial standard"`
}

// FavoriteCity is identified by ID; names may repeat.
type FavoriteCity struct {
	ID       uuid.UUID `json:"id"`
	CityName string    `json:"cityName"`
}

func NewFavoriteCity(name string) FavoriteCity {
	return FavoriteCity{
		ID:       uuid.New(),
		CityName: name,
	}
}
