package services

import (
	"context"
	"sync"

	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/models"
	"github.com/bobby-s-dev/iweather/pkg/client"
	"go.uber.org/zap"
)

var _ geocode.Geocoder = (*CityNameService)(nil)

// CityNameService checks city names against the OpenWeather direct
// geocoding endpoint.
type CityNameService struct {
	mu        sync.RWMutex
	params    *models.WeatherQueryParams
	endpoints Endpoints
	executor  *client.Executor
	logger    *zap.Logger
}

func NewCityNameService(endpoints Endpoints, executor *client.Executor, logger *zap.Logger) *CityNameService {
	return &CityNameService{
		endpoints: endpoints,
		executor:  executor,
		logger:    logger,
	}
}

func (s *CityNameService) SetParams(params *models.WeatherQueryParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params == nil {
		s.params = nil
		return
	}
	p := *params
	s.params = &p
}

func (s *CityNameService) MakeRequest() client.RequestDescriptor {
	s.mu.RLock()
	city := ""
	if s.params != nil {
		city = s.params.City
	}
	s.mu.RUnlock()

	return BuildCityValidationRequest(s.endpoints.CityValidationTemplate(), city)
}

func (s *CityNameService) Fetch(ctx context.Context) ([]geocode.Place, error) {
	return client.Execute[[]geocode.Place](ctx, s.executor, s.MakeRequest())
}

func (s *CityNameService) FetchAsync(ctx context.Context, onComplete func(client.Result[[]geocode.Place])) client.Task {
	return client.ExecuteAsync(ctx, s.executor, s.MakeRequest(), onComplete)
}

func (s *CityNameService) FetchStream(ctx context.Context) <-chan client.Result[[]geocode.Place] {
	return client.ExecuteStream[[]geocode.Place](ctx, s.executor, s.MakeRequest())
}

// Resolve looks up address without touching the stored params.
func (s *CityNameService) Resolve(ctx context.Context, address string) ([]geocode.Place, error) {
	desc := BuildCityValidationRequest(s.endpoints.CityValidationTemplate(), address)

	places, err := client.Execute[[]geocode.Place](ctx, s.executor, desc)
	if err != nil {
		s.logger.Warn("City lookup failed",
			zap.String("city", address),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("City lookup completed",
		zap.String("city", address),
		zap.Int("matches", len(places)))
	return places, nil
}
