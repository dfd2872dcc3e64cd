// Package geo holds the spherical-distance math and coordinate validation
// shared by the registry and its tests.
package geo

import (
	"math"

	"github.com/example/driverhub/internal/driver/domain"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(a, b domain.Coordinates) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dlat := toRadians(b.Latitude - a.Latitude)
	dlon := toRadians(b.Longitude - a.Longitude)

	sinDlat := math.Sin(dlat / 2)
	sinDlon := math.Sin(dlon / 2)
	h := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlon*sinDlon
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// ValidateCoordinates rejects non-finite values and out-of-range latitudes
// and longitudes.
func ValidateCoordinates(c domain.Coordinates) error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) {
		return domain.NewValidationError("latitude", "must be a finite number")
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return domain.NewValidationError("longitude", "must be a finite number")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return domain.NewValidationError("latitude", "must be within [-90, 90]")
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return domain.NewValidationError("longitude", "must be within [-180, 180]")
	}
	return nil
}

// ValidateRadiusKm rejects non-positive or non-finite search radii.
func ValidateRadiusKm(radiusKm float64) error {
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return domain.NewValidationError("radius", "must be a positive number of kilometers")
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
