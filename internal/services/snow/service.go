package snow

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

const (
	maxRadiusMeters  = 500
	radiusStepMeters = 100
	earthRadiusM     = 6371000
)

type geocoder interface {
	Geocode(ctx context.Context, postalCode string) (models.Location, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) string
}

type stationQuerier interface {
	QueryStations(ctx context.Context, lat, lon float64, radiusMeters int) ([]Station, error)
}

// Light is a flashing light near the searched location, annotated with its
// street and distance from the search point.
type Light struct {
	Station  string  `json:"station"`
	Status   string  `json:"status"`
	Street   string  `json:"street"`
	Distance float64 `json:"distance"`
}

// Report is the outcome of one location check.
type Report struct {
	Found        bool    `json:"found"`
	SearchRadius int     `json:"search_radius"`
	Active       bool    `json:"has_active_operation"`
	Lights       []Light `json:"lights,omitempty"`
}

// Service checks snow removal activity around coordinates. The search starts
// at startRadius and widens by 100m steps up to 500m before concluding no
// lights are nearby.
type Service struct {
	geocoder    geocoder
	stations    stationQuerier
	startRadius int
	logger      *log.Logger
}

func NewService(geocoder geocoder, stations stationQuerier, startRadius int, logger *log.Logger) *Service {
	return &Service{geocoder: geocoder, stations: stations, startRadius: startRadius, logger: logger}
}

// CheckLocation reports flashing lights around a point.
func (s *Service) CheckLocation(ctx context.Context, lat, lon float64) (Report, error) {
	radius := s.startRadius
	for {
		stations, err := s.stations.QueryStations(ctx, lat, lon, radius)
		if err != nil {
			return Report{}, err
		}

		if len(stations) == 0 {
			if radius < maxRadiusMeters {
				radius += radiusStepMeters
				continue
			}
			return Report{SearchRadius: radius}, nil
		}

		report := Report{Found: true, SearchRadius: radius}
		for _, st := range stations {
			light := Light{
				Station:  st.Number,
				Status:   st.Status,
				Street:   s.geocoder.ReverseGeocode(ctx, st.Lat, st.Lon),
				Distance: distanceMeters(lat, lon, st.Lat, st.Lon),
			}
			if st.Status == StatusActive {
				report.Active = true
			}
			report.Lights = append(report.Lights, light)
		}

		sort.Slice(report.Lights, func(i, j int) bool {
			return report.Lights[i].Distance < report.Lights[j].Distance
		})
		return report, nil
	}
}

// CheckPostalCode reports whether an operation is active near a postal code
// and which streets have active lights.
func (s *Service) CheckPostalCode(ctx context.Context, postalCode string) (bool, []string, error) {
	location, err := s.geocoder.Geocode(ctx, postalCode)
	if err != nil {
		return false, nil, err
	}

	report, err := s.CheckLocation(ctx, location.Lat, location.Lon)
	if err != nil {
		return false, nil, err
	}
	if !report.Found || !report.Active {
		return false, nil, nil
	}

	var streets []string
	for _, light := range report.Lights {
		if light.Status == StatusActive {
			streets = append(streets, light.Street)
		}
	}
	return true, streets, nil
}

// distanceMeters is the haversine distance between two coordinates.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}
