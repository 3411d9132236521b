package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/models"
	"github.com/bobby-s-dev/iweather/internal/storage"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// FavoritesKey is the storage key holding the JSON encoded city list.
const FavoritesKey = "cities"

var (
	ErrQueryTooShort   = errors.New("search query must be at least 3 characters")
	ErrInvalidCityName = errors.New("search query must contain only letters and spaces")
	ErrCityNotFound    = errors.New("city not found")
)

type searchQuery struct {
	Name string `validate:"min=3,cityname"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cityname", func(fl validator.FieldLevel) bool {
		return isCityName(fl.Field().String())
	})
	return v
}

// isCityName accepts letters, combining marks, tabs and horizontal spaces.
func isCityName(s string) bool {
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r):
		case r == '\t', unicode.Is(unicode.Zs, r):
		default:
			return false
		}
	}
	return true
}

// FavoritesStore is the persisted, ordered list of favourite cities.
type FavoritesStore struct {
	mu       sync.RWMutex
	cities   []models.FavoriteCity
	loading  bool
	kv       storage.KeyValue
	geocoder geocode.Geocoder
	logger   *zap.Logger
}

// NewFavoritesStore loads any previously saved list from kv.
func NewFavoritesStore(ctx context.Context, kv storage.KeyValue, geocoder geocode.Geocoder, logger *zap.Logger) *FavoritesStore {
	s := &FavoritesStore{
		cities:   []models.FavoriteCity{},
		kv:       kv,
		geocoder: geocoder,
		logger:   logger,
	}
	s.load(ctx)
	return s
}

func (s *FavoritesStore) Cities() []models.FavoriteCity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FavoriteCity, len(s.cities))
	copy(out, s.cities)
	return out
}

func (s *FavoritesStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ValidateQuery reports why query would be rejected before any lookup.
func ValidateQuery(query string) error {
	err := validate.Struct(searchQuery{Name: strings.TrimSpace(query)})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "cityname" {
		return ErrInvalidCityName
	}
	return ErrQueryTooShort
}

// PerformSearch validates query, resolves it and appends it on success.
// Rejected queries leave the store untouched. A lookup that finds nothing
// leaves the loading flag set.
func (s *FavoritesStore) PerformSearch(ctx context.Context, query string) error {
	if err := ValidateQuery(query); err != nil {
		s.logger.Debug("Search query rejected",
			zap.String("query", query),
			zap.Error(err))
		return err
	}

	s.setLoading(true)

	places, err := s.geocoder.Resolve(ctx, query)
	if err != nil || len(places) == 0 {
		s.logger.Info("Invalid city",
			zap.String("query", query),
			zap.Error(err))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCityNotFound, err)
		}
		return ErrCityNotFound
	}

	return s.addCity(ctx, query)
}

// SearchAsync runs PerformSearch on its own goroutine.
func (s *FavoritesStore) SearchAsync(ctx context.Context, query string) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		errc <- s.PerformSearch(ctx, query)
	}()
	return errc
}

// NewSearchDebouncer returns a Debouncer that searches once typing settles.
func (s *FavoritesStore) NewSearchDebouncer(ctx context.Context, delay time.Duration) *Debouncer {
	return NewDebouncer(delay, func(query string) {
		if err := s.PerformSearch(ctx, query); err != nil {
			s.logger.Debug("Debounced search did not add a city",
				zap.String("query", query),
				zap.Error(err))
		}
	})
}

func (s *FavoritesStore) addCity(ctx context.Context, name string) error {
	s.mu.Lock()
	s.cities = append(s.cities, models.NewFavoriteCity(name))
	snapshot := make([]models.FavoriteCity, len(s.cities))
	copy(snapshot, s.cities)
	s.mu.Unlock()

	saveErr := s.save(ctx, snapshot)
	if saveErr != nil {
		s.logger.Error("Failed to save favorite cities", zap.Error(saveErr))
	}

	s.load(ctx)
	s.setLoading(false)

	s.logger.Info("City added to favorites", zap.String("city", name))
	return saveErr
}

func (s *FavoritesStore) save(ctx context.Context, cities []models.FavoriteCity) error {
	data, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	if err := s.kv.Set(ctx, FavoritesKey, data); err != nil {
		return fmt.Errorf("store favorites: %w", err)
	}
	return nil
}

// load replaces the in-memory list with the stored one. Missing or
// unreadable data leaves the current list as it is.
func (s *FavoritesStore) load(ctx context.Context) {
	data, ok, err := s.kv.Get(ctx, FavoritesKey)
	if err != nil {
		s.logger.Error("Failed to read favorite cities", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var cities []models.FavoriteCity
	if err := json.Unmarshal(data, &cities); err != nil {
		s.logger.Warn("Discarding unreadable favorite cities", zap.Error(err))
		return
	}
	if cities == nil {
		cities = []models.FavoriteCity{}
	}

	s.mu.Lock()
	s.cities = cities
	s.mu.Unlock()
}

func (s *FavoritesStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Debouncer calls fire with the latest query once no new query has
// arrived for the configured delay. Empty queries cancel the pending call.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fire  func(query string)
}

func NewDebouncer(delay time.Duration, fire func(query string)) *Debouncer {
	return &Debouncer{delay: delay, fire: fire}
}

func (d *Debouncer) SetQuery(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if query == "" {
		return
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(query) })
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
