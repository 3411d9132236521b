package geocode

import (
	"context"
	"strings"
	"sync"
)

// Place is one resolved location.
type Place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country,omitempty"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Geocoder resolves a free text address into candidate places.
type Geocoder interface {
	Resolve(ctx context.Context, address string) ([]Place, error)
}

// StaticGeocoder answers from a fixed, case-insensitive table.
type StaticGeocoder struct {
	mu     sync.RWMutex
	places map[string][]Place
	calls  int
	Err    error
}

func NewStaticGeocoder(places map[string][]Place) *StaticGeocoder {
	g := &StaticGeocoder{places: make(map[string][]Place)}
	for name, p := range places {
		g.places[strings.ToLower(name)] = p
	}
	return g
}

func (g *StaticGeocoder) Resolve(_ context.Context, address string) ([]Place, error) {
	g.mu.Lock()
	g.calls++
	err := g.Err
	places := g.places[strings.ToLower(strings.TrimSpace(address))]
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return places, nil
}

// Calls reports how many times Resolve ran.
func (g *StaticGeocoder) Calls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.calls
}
