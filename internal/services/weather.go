package services

import (
	"context"
	"sync"

	"github.com/bobby-s-dev/iweather/internal/models"
	"github.com/bobby-s-dev/iweather/pkg/client"
	"go.uber.org/zap"
)

// WeatherService binds the forecast template to an executor.
type WeatherService struct {
	mu        sync.RWMutex
	params    *models.WeatherQueryParams
	endpoints Endpoints
	executor  *client.Executor
	logger    *zap.Logger
}

func NewWeatherService(endpoints Endpoints, executor *client.Executor, logger *zap.Logger) *WeatherService {
	return &WeatherService{
		endpoints: endpoints,
		executor:  executor,
		logger:    logger,
	}
}

// SetParams replaces the query used by the next fetch. nil restores the
// built-in defaults.
func (s *WeatherService) SetParams(params *models.WeatherQueryParams) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params == nil {
		s.params = nil
		return
	}
	p := *params
	s.params = &p
}

func (s *WeatherService) Params() *models.WeatherQueryParams {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.params == nil {
		return nil
	}
	p := *s.params
	return &p
}

func (s *WeatherService) MakeRequest() client.RequestDescriptor {
	return BuildForecastRequest(s.endpoints.ForecastTemplate(), s.Params())
}

func (s *WeatherService) Fetch(ctx context.Context) (models.WeatherSnapshot, error) {
	s.logFetch()
	return client.Execute[models.WeatherSnapshot](ctx, s.executor, s.MakeRequest())
}

func (s *WeatherService) FetchAsync(ctx context.Context, onComplete func(client.Result[models.WeatherSnapshot])) client.Task {
	s.logFetch()
	return client.ExecuteAsync(ctx, s.executor, s.MakeRequest(), onComplete)
}

func (s *WeatherService) FetchStream(ctx context.Context) <-chan client.Result[models.WeatherSnapshot] {
	s.logFetch()
	return client.ExecuteStream[models.WeatherSnapshot](ctx, s.executor, s.MakeRequest())
}

func (s *WeatherService) logFetch() {
	if p := s.Params(); p != nil {
		s.logger.Debug("Fetching forecast",
			zap.String("city", p.City),
			zap.String("lat", p.Latitude),
			zap.String("lon", p.Longitude),
			zap.String("units", p.Units))
		return
	}
	s.logger.Debug("Fetching forecast with default parameters")
}
