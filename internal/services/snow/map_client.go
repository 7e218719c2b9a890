package snow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
)

// StatusActive is the map layer's marker for an operation in progress.
const StatusActive = "En fonction"

// Station is one flashing light feature from the snow removal map layer.
type Station struct {
	Number string
	Status string
	Lat    float64
	Lon    float64
}

// DeneigementClient queries the city's snow removal ArcGIS layer for flashing
// lights within a radius of a point.
type DeneigementClient struct {
	baseURL string
	client  HTTPClient
	logger  *log.Logger
}

func NewDeneigementClient(baseURL string, client HTTPClient, logger *log.Logger) *DeneigementClient {
	return &DeneigementClient{baseURL: baseURL, client: client, logger: logger}
}

type queryResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	Features []struct {
		Attributes struct {
			Status  string `json:"STATUT"`
			Station string `json:"STATION_NO"`
		} `json:"attributes"`
		Geometry struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"geometry"`
	} `json:"features"`
}

func (c *DeneigementClient) QueryStations(
	ctx context.Context,
	lat, lon float64,
	radiusMeters int,
) ([]Station, error) {
	params := url.Values{}
	params.Set("geometry", fmt.Sprintf("%f,%f", lon, lat))
	params.Set("geometryType", "esriGeometryPoint")
	params.Set("inSR", "4326")
	params.Set("spatialRel", "esriSpatialRelIntersects")
	params.Set("distance", strconv.Itoa(radiusMeters))
	params.Set("units", "esriSRUnit_Meter")
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("outSR", "4326")
	params.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", geocoderUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snow map query: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Println("failed to close response body:", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snow map status %s", resp.Status)
	}

	var data queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode snow map response: %w", err)
	}

	// ArcGIS reports errors inside a 200 response.
	if data.Error != nil {
		return nil, fmt.Errorf("snow map error: %s", data.Error.Message)
	}

	stations := make([]Station, 0, len(data.Features))
	for _, f := range data.Features {
		stations = append(stations, Station{
			Number: f.Attributes.Station,
			Status: f.Attributes.Status,
			Lat:    f.Geometry.Y,
			Lon:    f.Geometry.X,
		})
	}
	return stations, nil
}
