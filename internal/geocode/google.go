package geocode

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

var googleKeyMu sync.Mutex

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey string
}

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

func (g *GoogleGeocoder) Resolve(ctx context.Context, address string) ([]Place, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google geocoding api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the library keeps its key in a package variable
	googleKeyMu.Lock()
	geocoder.ApiKey = g.apiKey
	location, err := geocoder.Geocoding(geocoder.Address{City: address})
	googleKeyMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("google geocoding %q: %w", address, err)
	}

	return []Place{{
		Name:      address,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}}, nil
}
