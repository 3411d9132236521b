package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/iweather/internal/geocode"
	"github.com/bobby-s-dev/iweather/internal/storage"
)

func newTestGeocoder() *geocode.StaticGeocoder {
	return geocode.NewStaticGeocoder(map[string][]geocode.Place{
		"Chicago":  {{Name: "Chicago", Country: "US", Latitude: 41.8755616, Longitude: -87.6244212}},
		"New York": {{Name: "New York", Country: "US", Latitude: 40.7127281, Longitude: -74.0060152}},
	})
}

func TestPerformSearchAddsValidCity(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	store := NewFavoritesStore(ctx, kv, newTestGeocoder(), zap.NewNop())

	if err := store.PerformSearch(ctx, "Chicago"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cities := store.Cities()
	if len(cities) != 1 || cities[0].CityName != "Chicago" {
		t.Fatalf("expected [Chicago], got %+v", cities)
	}
	if store.IsLoading() {
		t.Fatal("expected loading to be cleared after a successful add")
	}
	if _, ok, _ := kv.Get(ctx, FavoritesKey); !ok {
		t.Fatal("expected the list to be persisted")
	}
}

func TestPerformSearchRejectsShortQuery(t *testing.T) {
	ctx := context.Background()
	geocoder := newTestGeocoder()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), geocoder, zap.NewNop())

	for _, q := range []string{"", "NY", "  ab  "} {
		if err := store.PerformSearch(ctx, q); !errors.Is(err, ErrQueryTooShort) {
			t.Fatalf("%q: expected too short, got %v", q, err)
		}
	}
	if geocoder.Calls() != 0 {
		t.Fatalf("expected no geocoding, got %d calls", geocoder.Calls())
	}
	if store.IsLoading() || len(store.Cities()) != 0 {
		t.Fatal("expected store to be untouched")
	}
}

func TestPerformSearchRejectsNonLetters(t *testing.T) {
	ctx := context.Background()
	geocoder := newTestGeocoder()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), geocoder, zap.NewNop())

	for _, q := range []string{"Invalid City123", "St. Louis", "New\nYork"} {
		if err := store.PerformSearch(ctx, q); !errors.Is(err, ErrInvalidCityName) {
			t.Fatalf("%q: expected invalid city name, got %v", q, err)
		}
	}
	if geocoder.Calls() != 0 {
		t.Fatalf("expected no geocoding, got %d calls", geocoder.Calls())
	}
	if store.IsLoading() || len(store.Cities()) != 0 {
		t.Fatal("expected store to be untouched")
	}
}

func TestValidateQueryAcceptsAccentsAndTabs(t *testing.T) {
	for _, q := range []string{"São Paulo", "Zürich", "Kraków", "Rio\tBranco", " New York "} {
		if err := ValidateQuery(q); err != nil {
			t.Fatalf("%q: expected valid, got %v", q, err)
		}
	}
}

func TestPerformSearchUnknownCityKeepsLoading(t *testing.T) {
	ctx := context.Background()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), newTestGeocoder(), zap.NewNop())

	err := store.PerformSearch(ctx, "Atlantis")
	if !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected city not found, got %v", err)
	}
	if len(store.Cities()) != 0 {
		t.Fatal("expected no city to be added")
	}
	// loading is only cleared on the success path
	if !store.IsLoading() {
		t.Fatal("expected loading to remain set")
	}
}

func TestPerformSearchGeocoderFailure(t *testing.T) {
	ctx := context.Background()
	geocoder := newTestGeocoder()
	geocoder.Err = errors.New("lookup down")
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), geocoder, zap.NewNop())

	if err := store.PerformSearch(ctx, "Chicago"); !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("expected city not found, got %v", err)
	}
	if len(store.Cities()) != 0 {
		t.Fatal("expected no city to be added")
	}
}

func TestFavoritesAppendInOrderWithDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), newTestGeocoder(), zap.NewNop())

	for _, q := range []string{"Chicago", "New York", "Chicago"} {
		if err := store.PerformSearch(ctx, q); err != nil {
			t.Fatalf("%q: unexpected error: %v", q, err)
		}
	}

	cities := store.Cities()
	if len(cities) != 3 {
		t.Fatalf("expected 3 cities, got %d", len(cities))
	}
	names := []string{cities[0].CityName, cities[1].CityName, cities[2].CityName}
	if names[0] != "Chicago" || names[1] != "New York" || names[2] != "Chicago" {
		t.Fatalf("unexpected order: %v", names)
	}
	if cities[0].ID == cities[2].ID {
		t.Fatal("expected duplicate names to get distinct ids")
	}
}

func TestFavoritesStoresRawQuery(t *testing.T) {
	ctx := context.Background()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), newTestGeocoder(), zap.NewNop())

	if err := store.PerformSearch(ctx, " chicago "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Cities()[0].CityName; got != " chicago " {
		t.Fatalf("expected the untrimmed query to be stored, got %q", got)
	}
}

func TestFavoritesRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	first := NewFavoritesStore(ctx, kv, newTestGeocoder(), zap.NewNop())

	for _, q := range []string{"Chicago", "New York"} {
		if err := first.PerformSearch(ctx, q); err != nil {
			t.Fatalf("%q: unexpected error: %v", q, err)
		}
	}

	second := NewFavoritesStore(ctx, kv, newTestGeocoder(), zap.NewNop())
	want, got := first.Cities(), second.Cities()
	if len(got) != len(want) {
		t.Fatalf("expected %d cities, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("city %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestFavoritesCorruptBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	if err := kv.Set(ctx, FavoritesKey, []byte("not json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store := NewFavoritesStore(ctx, kv, newTestGeocoder(), zap.NewNop())
	if cities := store.Cities(); cities == nil || len(cities) != 0 {
		t.Fatalf("expected an empty list, got %+v", cities)
	}
}

func TestFavoritesOverFileStore(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/favorites.json"

	kv, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store := NewFavoritesStore(ctx, kv, newTestGeocoder(), zap.NewNop())
	if err := store.PerformSearch(ctx, "Chicago"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := storage.NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again := NewFavoritesStore(ctx, reopened, newTestGeocoder(), zap.NewNop())
	if cities := again.Cities(); len(cities) != 1 || cities[0].CityName != "Chicago" {
		t.Fatalf("expected [Chicago] after reopen, got %+v", cities)
	}
}

func TestSearchAsync(t *testing.T) {
	ctx := context.Background()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), newTestGeocoder(), zap.NewNop())

	errc := store.SearchAsync(ctx, "New York")
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := <-errc; ok {
		t.Fatal("expected channel to be closed")
	}
	if len(store.Cities()) != 1 {
		t.Fatalf("expected 1 city, got %d", len(store.Cities()))
	}
}

func TestDebouncerFiresLatestQueryOnce(t *testing.T) {
	var mu sync.Mutex
	var fired []string
	done := make(chan struct{}, 4)

	d := NewDebouncer(30*time.Millisecond, func(q string) {
		mu.Lock()
		fired = append(fired, q)
		mu.Unlock()
		done <- struct{}{}
	})
	defer d.Stop()

	d.SetQuery("Chi")
	d.SetQuery("Chica")
	d.SetQuery("Chicago")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "Chicago" {
		t.Fatalf("expected one call with Chicago, got %v", fired)
	}
}

func TestDebouncerEmptyQueryCancels(t *testing.T) {
	fired := make(chan string, 1)
	d := NewDebouncer(20*time.Millisecond, func(q string) { fired <- q })

	d.SetQuery("Chicago")
	d.SetQuery("")

	select {
	case q := <-fired:
		t.Fatalf("expected no call, got %q", q)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestSearchDebouncerAddsCity(t *testing.T) {
	ctx := context.Background()
	store := NewFavoritesStore(ctx, storage.NewMemoryStore(), newTestGeocoder(), zap.NewNop())

	d := store.NewSearchDebouncer(ctx, 10*time.Millisecond)
	defer d.Stop()
	d.SetQuery("Chicago")

	deadline := time.Now().Add(time.Second)
	for len(store.Cities()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the debounced search to add a city")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
