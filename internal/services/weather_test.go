package services

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/models"
	"github.com/bobby-s-dev/iweather/pkg/client"
	"github.com/bobby-s-dev/iweather/pkg/client/clienttest"
)

var testEndpoints = Endpoints{
	BaseURL: "https://api.test/data/3.0",
	GeoURL:  "https://api.test/geo/1.0",
	APIKey:  "k",
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func TestForecastRequestSubstitution(t *testing.T) {
	params := &models.WeatherQueryParams{
		City:          "Chicago",
		Latitude:      "41.85",
		Longitude:     "-87.65",
		ExcludeFields: "minutely",
		Units:         "metric",
	}

	desc := BuildForecastRequest(testEndpoints.ForecastTemplate(), params)
	want := "https://api.test/data/3.0/onecall?lat=41.85&lon=-87.65&appid=k&exclude=minutely&units=metric"
	if desc.Path != want {
		t.Fatalf("expected %s, got %s", want, desc.Path)
	}
	if desc.Method != client.MethodGet || desc.ContentType != "application/json" {
		t.Fatalf("expected json GET, got %s %s", desc.Method, desc.ContentType)
	}
	if desc.Type != client.RequestWeatherForecast {
		t.Fatalf("expected forecast request type, got %s", desc.Type)
	}
}

func TestForecastRequestFallsBackToDefaults(t *testing.T) {
	desc := BuildForecastRequest(testEndpoints.ForecastTemplate(), nil)
	want := "https://api.test/data/3.0/onecall?lat=51.4514278&lon=-1.078448&appid=k&exclude=minutely&units=metric"
	if desc.Path != want {
		t.Fatalf("expected %s, got %s", want, desc.Path)
	}
}

func TestForecastRequestDoesNotEscape(t *testing.T) {
	desc := BuildForecastRequest("{latitude}|{longitude}", &models.WeatherQueryParams{
		Latitude:  "1 2",
		Longitude: "50%",
	})
	if desc.Path != "1 2|50%" {
		t.Fatalf("expected literal substitution, got %s", desc.Path)
	}
}

func TestCityValidationRequestDefaultsToLondon(t *testing.T) {
	svc := NewCityNameService(testEndpoints, client.NewExecutor(clienttest.New(200, nil), zap.NewNop()), zap.NewNop())

	if got := svc.MakeRequest().Path; got != "https://api.test/geo/1.0/direct?q=London&limit=5&appid=k" {
		t.Fatalf("unexpected default city request: %s", got)
	}

	svc.SetParams(&models.WeatherQueryParams{City: "Chicago"})
	desc := svc.MakeRequest()
	if desc.Path != "https://api.test/geo/1.0/direct?q=Chicago&limit=5&appid=k" {
		t.Fatalf("unexpected city request: %s", desc.Path)
	}
	if desc.Type != client.RequestCityValidation {
		t.Fatalf("expected city validation type, got %s", desc.Type)
	}
}

func TestWeatherServiceSurfacesAgree(t *testing.T) {
	transport := clienttest.New(200, readFixture(t, "onecall.json"))
	svc := NewWeatherService(testEndpoints, client.NewExecutor(transport, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	awaited, err := svc.Fetch(ctx)
	if err != nil {
		t.Fatalf("await: unexpected error: %v", err)
	}

	done := make(chan client.Result[models.WeatherSnapshot], 1)
	svc.FetchAsync(ctx, func(r client.Result[models.WeatherSnapshot]) { done <- r })
	called := <-done
	if called.Err != nil {
		t.Fatalf("callback: unexpected error: %v", called.Err)
	}

	streamed := <-svc.FetchStream(ctx)
	if streamed.Err != nil {
		t.Fatalf("stream: unexpected error: %v", streamed.Err)
	}

	if !reflect.DeepEqual(awaited, called.Value) || !reflect.DeepEqual(awaited, streamed.Value) {
		t.Fatal("expected identical snapshots from every surface")
	}
	if awaited.Current.Temperature != -3.4 {
		t.Fatalf("expected current temp -3.4, got %v", awaited.Current.Temperature)
	}
	if len(awaited.Hourly) != 2 || len(awaited.Daily) != 2 {
		t.Fatalf("expected 2 hourly and 2 daily rows, got %d and %d", len(awaited.Hourly), len(awaited.Daily))
	}
	if awaited.Daily[0].Temperature.Min != -5.3 || awaited.Daily[0].Temperature.Max != 0.8 {
		t.Fatalf("unexpected daily temps: %+v", awaited.Daily[0].Temperature)
	}
	if len(transport.Tasks()) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(transport.Tasks()))
	}
}

func TestWeatherServiceDecodeIsRepeatable(t *testing.T) {
	transport := clienttest.New(200, readFixture(t, "onecall.json"))
	svc := NewWeatherService(testEndpoints, client.NewExecutor(transport, zap.NewNop()), zap.NewNop())

	first, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected the same payload to decode to the same snapshot")
	}
}

func TestWeatherServiceSendsParams(t *testing.T) {
	transport := clienttest.New(200, readFixture(t, "onecall.json"))
	svc := NewWeatherService(testEndpoints, client.NewExecutor(transport, zap.NewNop()), zap.NewNop())

	params := ForecastParams("Chicago", &geocode.Place{Name: "Chicago", Latitude: 41.8755616, Longitude: -87.6244212}, 0, 0)
	svc.SetParams(&params)
	if _, err := svc.Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "https://api.test/data/3.0/onecall?lat=41.8755616&lon=-87.6244212&appid=k&exclude=minutely&units=metric"
	if got := transport.LastURL(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	svc.SetParams(nil)
	if svc.Params() != nil {
		t.Fatal("expected params to be cleared")
	}
}

func TestWeatherServiceServerError(t *testing.T) {
	svc := NewWeatherService(testEndpoints, client.NewExecutor(clienttest.New(502, nil), zap.NewNop()), zap.NewNop())

	_, err := svc.Fetch(context.Background())
	if !errors.Is(err, client.ErrInternalServerError) {
		t.Fatalf("expected internal server error, got %v", err)
	}
}

func TestForecastParamsFallback(t *testing.T) {
	params := ForecastParams("Atlantis", nil, 51.5281798, -0.4312316)
	if params.Latitude != "51.5281798" || params.Longitude != "-0.4312316" {
		t.Fatalf("expected fallback coordinates, got %s,%s", params.Latitude, params.Longitude)
	}
	if params.ExcludeFields != DefaultExcludeFields || params.Units != DefaultUnits {
		t.Fatalf("unexpected defaults: %+v", params)
	}
}

func TestCityNameServiceResolve(t *testing.T) {
	transport := clienttest.New(200, readFixture(t, "direct_chicago.json"))
	svc := NewCityNameService(testEndpoints, client.NewExecutor(transport, zap.NewNop()), zap.NewNop())

	places, err := svc.Resolve(context.Background(), "Chicago")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 || places[0].Name != "Chicago" || places[0].Country != "US" {
		t.Fatalf("unexpected places: %+v", places)
	}
	if places[0].Latitude != 41.8755616 {
		t.Fatalf("expected latitude 41.8755616, got %v", places[0].Latitude)
	}

	want := "https://api.test/geo/1.0/direct?q=Chicago&limit=5&appid=k"
	if got := transport.LastURL(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestCityNameServiceEncodesSpaces(t *testing.T) {
	transport := clienttest.New(200, []byte(`[]`))
	svc := NewCityNameService(testEndpoints, client.NewExecutor(transport, zap.NewNop()), zap.NewNop())

	places, err := svc.Resolve(context.Background(), "New York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 0 {
		t.Fatalf("expected no places, got %d", len(places))
	}
	want := "https://api.test/geo/1.0/direct?q=New%20York&limit=5&appid=k"
	if got := transport.LastURL(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
