// Package snow checks the city's snow removal map for active operations near
// a subscriber's postal code.
package snow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

const geocoderUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ArcGISGeocoder resolves postal codes to coordinates and coordinates back to
// street names through the ArcGIS World Geocoder.
type ArcGISGeocoder struct {
	baseURL string
	client  HTTPClient
	logger  *log.Logger
}

func NewArcGISGeocoder(baseURL string, client HTTPClient, logger *log.Logger) *ArcGISGeocoder {
	return &ArcGISGeocoder{baseURL: baseURL, client: client, logger: logger}
}

type candidatesResponse struct {
	Candidates []struct {
		Location struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"location"`
	} `json:"candidates"`
}

type reverseResponse struct {
	Address struct {
		Address   string `json:"Address"`
		MatchAddr string `json:"Match_addr"`
	} `json:"address"`
}

func (g *ArcGISGeocoder) Geocode(ctx context.Context, postalCode string) (models.Location, error) {
	normalized := models.NormalizePostalCode(postalCode)
	formatted := normalized
	if len(normalized) == 6 {
		formatted = normalized[:3] + " " + normalized[3:]
	}

	params := url.Values{}
	params.Set("SingleLine", formatted+", Quebec, Canada")
	params.Set("f", "json")
	params.Set("outFields", "*")

	var data candidatesResponse
	if err := g.get(ctx, g.baseURL+"/findAddressCandidates", params, &data); err != nil {
		return models.Location{}, fmt.Errorf("geocode %s: %w", formatted, err)
	}

	if len(data.Candidates) == 0 {
		return models.Location{}, fmt.Errorf("no geocode candidates for %s", formatted)
	}

	best := data.Candidates[0]
	return models.Location{Lat: best.Location.Y, Lon: best.Location.X}, nil
}

// ReverseGeocode names the street at the coordinates. Failures degrade to
// "Unknown" because the street name only decorates alert emails.
func (g *ArcGISGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lon, lat))
	params.Set("f", "json")
	params.Set("outSR", "4326")

	var data reverseResponse
	if err := g.get(ctx, g.baseURL+"/reverseGeocode", params, &data); err != nil {
		g.logger.Printf("reverse geocode (%f, %f) failed: %v", lat, lon, err)
		return "Unknown"
	}

	if data.Address.Address != "" {
		return data.Address.Address
	}
	if data.Address.MatchAddr != "" {
		return strings.SplitN(data.Address.MatchAddr, ",", 2)[0]
	}
	return "Unknown"
}

func (g *ArcGISGeocoder) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", geocoderUserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Println("failed to close response body:", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocoder status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
