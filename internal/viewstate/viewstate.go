// Package viewstate turns a weather snapshot into display strings.
package viewstate

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobby-s-dev/iweather/internal/models"
)

const (
	defaultIcon       = "sun"
	defaultConditions = "Cloudy"
)

var iconNames = map[string]string{
	"01d": "sun",
	"01n": "moon",
	"02d": "cloudSun",
	"02n": "cloudMoon",
	"03d": "cloud",
	"03n": "cloudMoon",
	"04d": "cloudMax",
	"04n": "cloudMoon",
	"09d": "rainy",
	"09n": "rainy",
	"10d": "rainySun",
	"10n": "rainyMoon",
	"11d": "thunderstormSun",
	"11n": "thunderstormMoon",
	"13d": "snowy",
	"13n": "snowy-2",
	"50d": "tornado",
	"50n": "tornado",
}

// IconName maps an OpenWeather icon code to a local icon name.
func IconName(code string) string {
	if name, ok := iconNames[code]; ok {
		return name
	}
	return defaultIcon
}

// FormatTemperature renders a temperature without decimals.
func FormatTemperature(v float64) string {
	return fmt.Sprintf("%1.0f", v)
}

// Presenter derives view strings from one snapshot. Dates are rendered in loc.
type Presenter struct {
	snapshot models.WeatherSnapshot
	loc      *time.Location
}

func New(snapshot models.WeatherSnapshot, loc *time.Location) Presenter {
	if loc == nil {
		loc = time.Local
	}
	return Presenter{snapshot: snapshot, loc: loc}
}

type CurrentView struct {
	Date           string `json:"date"`
	WeatherIcon    string `json:"weatherIcon"`
	IconName       string `json:"iconName"`
	Temperature    string `json:"temperature"`
	FeelsLike      string `json:"feelsLike"`
	MinTemperature string `json:"minTemperature"`
	MaxTemperature string `json:"maxTemperature"`
	Conditions     string `json:"conditions"`
	WindSpeed      string `json:"windSpeed"`
	Humidity       string `json:"humidity"`
	RainChances    string `json:"rainChances"`
	Summary        string `json:"summary"`
}

type HourlyCell struct {
	Hour        string `json:"hour"`
	Icon        string `json:"icon"`
	Temperature string `json:"temperature"`
}

type DailyCell struct {
	Day            string `json:"day"`
	DateValue      string `json:"dateValue"`
	Icon           string `json:"icon"`
	MinTemperature string `json:"minTemperature"`
	MaxTemperature string `json:"maxTemperature"`
}

// View is everything a forecast screen shows.
type View struct {
	Current CurrentView  `json:"current"`
	Hourly  []HourlyCell `json:"hourly"`
	Daily   []DailyCell  `json:"daily"`
}

func (p Presenter) View() View {
	return View{
		Current: p.Current(),
		Hourly:  p.Hourly(),
		Daily:   p.Daily(),
	}
}

func (p Presenter) Current() CurrentView {
	return CurrentView{
		Date:           p.Date(),
		WeatherIcon:    p.WeatherIcon(),
		IconName:       p.IconName(),
		Temperature:    p.Temperature(),
		FeelsLike:      p.FeelsLike(),
		MinTemperature: p.CurrentMinTemp(),
		MaxTemperature: p.CurrentMaxTemp(),
		Conditions:     p.Conditions(),
		WindSpeed:      p.WindSpeed(),
		Humidity:       p.Humidity(),
		RainChances:    p.RainChances(),
		Summary:        p.SessionSummary(),
	}
}

// Date is the current entry's date in long form, e.g. "Monday, January 1, 2024".
func (p Presenter) Date() string {
	return p.at(p.snapshot.Current.Date).Format("Monday, January 2, 2006")
}

// WeatherIcon is the raw icon code of the current condition.
func (p Presenter) WeatherIcon() string {
	if c, ok := p.snapshot.Current.FirstCondition(); ok {
		return c.Icon
	}
	return defaultIcon
}

func (p Presenter) IconName() string {
	return IconName(p.WeatherIcon())
}

func (p Presenter) Temperature() string {
	return FormatTemperature(p.snapshot.Current.Temperature)
}

func (p Presenter) FeelsLike() string {
	return FormatTemperature(p.snapshot.Current.FeelsLike)
}

func (p Presenter) CurrentMinTemp() string {
	var v float64
	if today, ok := p.today(); ok {
		v = today.Temperature.Min
	}
	return FormatTemperature(v)
}

func (p Presenter) CurrentMaxTemp() string {
	var v float64
	if today, ok := p.today(); ok {
		v = today.Temperature.Max
	}
	return FormatTemperature(v)
}

func (p Presenter) Conditions() string {
	if c, ok := p.snapshot.Current.FirstCondition(); ok {
		return c.Main
	}
	return defaultConditions
}

func (p Presenter) WindSpeed() string {
	return fmt.Sprintf("%0.1f", p.snapshot.Current.WindSpeed)
}

func (p Presenter) Humidity() string {
	return fmt.Sprintf("%d%%", p.snapshot.Current.Humidity)
}

// RainChances reports the dew point as a percentage. It is a placeholder,
// not a precipitation probability.
func (p Presenter) RainChances() string {
	return fmt.Sprintf("%0.1f%%", p.snapshot.Current.DewPoint)
}

// SessionSummary describes the rest of the day or night in one sentence.
func (p Presenter) SessionSummary() string {
	dayOrNight, through := "tonight", "morning"
	if hour := p.at(p.snapshot.Current.Date).Hour(); hour > 6 && hour < 18 {
		dayOrNight, through = "today", "night"
	}

	return fmt.Sprintf("%s conditions %s, continuing through the %s. Wind gusts up to %0.0f mph are making the temperature feel like %sº.",
		p.Conditions(), dayOrNight, through, p.snapshot.Current.WindSpeed, p.FeelsLike())
}

func (p Presenter) Hourly() []HourlyCell {
	cells := make([]HourlyCell, 0, len(p.snapshot.Hourly))
	for _, w := range p.snapshot.Hourly {
		icon := defaultIcon
		if c, ok := w.FirstCondition(); ok {
			icon = c.Icon
		}
		cells = append(cells, HourlyCell{
			Hour:        p.at(w.Date).Format("03 PM"),
			Icon:        IconName(icon),
			Temperature: FormatTemperature(w.Temperature),
		})
	}
	return cells
}

func (p Presenter) Daily() []DailyCell {
	cells := make([]DailyCell, 0, len(p.snapshot.Daily))
	for _, d := range p.snapshot.Daily {
		icon := defaultIcon
		if c, ok := d.FirstCondition(); ok {
			icon = c.Icon
		}
		t := p.at(d.Date)
		cells = append(cells, DailyCell{
			Day:            strings.ToUpper(t.Format("Mon")),
			DateValue:      t.Format("02"),
			Icon:           IconName(icon),
			MinTemperature: FormatTemperature(d.Temperature.Min),
			MaxTemperature: FormatTemperature(d.Temperature.Max),
		})
	}
	return cells
}

// today is the first daily entry on the current entry's calendar date.
func (p Presenter) today() (models.WeatherDaily, bool) {
	y, m, d := p.at(p.snapshot.Current.Date).Date()
	for _, daily := range p.snapshot.Daily {
		dy, dm, dd := p.at(daily.Date).Date()
		if dy == y && dm == m && dd == d {
			return daily, true
		}
	}
	return models.WeatherDaily{}, false
}

func (p Presenter) at(unix float64) time.Time {
	sec := int64(unix)
	nsec := int64((unix - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).In(p.loc)
}
