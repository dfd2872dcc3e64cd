package domain

import (
	"context"
	"time"
)

// DefaultVehicleType is applied when a profile is created without one.
const DefaultVehicleType = "sedan"

// LocationTTL bounds how long a location entry may live without a refresh.
// A driver that has not pinged within this window is implicitly offline.
const LocationTTL = 24 * time.Hour

// DriverProfile holds the durable, slow-changing attributes of a driver.
// It never carries location data.
type DriverProfile struct {
	DriverID     string    `json:"driverId"`
	Name         string    `json:"name"`
	VehicleType  string    `json:"vehicleType"`
	LicensePlate string    `json:"licensePlate"`
	PhoneNumber  string    `json:"phoneNumber"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// ProfilePatch carries the optional fields of a partial profile update.
// Nil means "leave unchanged".
type ProfilePatch struct {
	Name         *string `json:"name,omitempty"`
	VehicleType  *string `json:"vehicleType,omitempty"`
	LicensePlate *string `json:"licensePlate,omitempty"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.VehicleType == nil && p.LicensePlate == nil && p.PhoneNumber == nil
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DriverLocation is the ephemeral entry held by the location index while a
// driver is online. The entry existing at all is what "online" means; there
// is no offline entry.
type DriverLocation struct {
	DriverID   string    `json:"driverId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Timestamp  time.Time `json:"timestamp"`
	Online     bool      `json:"isOnline"`
	DistanceKm float64   `json:"distanceKm,omitempty"`
}

// DriverDetails merges a profile with a location snapshot when one exists.
// Location fields are pointers so an offline driver serializes without them.
type DriverDetails struct {
	DriverProfile
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Online    bool       `json:"isOnline"`
}

// ProfileStore is the durable store of driver profiles.
type ProfileStore interface {
	Create(ctx context.Context, profile DriverProfile) (DriverProfile, error)
	Update(ctx context.Context, driverID string, patch ProfilePatch) (DriverProfile, error)
	Get(ctx context.Context, driverID string) (DriverProfile, error)
	List(ctx context.Context) ([]DriverProfile, error)
}

// LocationIndex is the ephemeral, geo-queryable store of online drivers.
// Upsert refreshes the entry TTL on every call; Remove is a no-op for an
// absent driver; Get reports absence via the bool, not an error.
type LocationIndex interface {
	Upsert(ctx context.Context, loc DriverLocation) error
	Remove(ctx context.Context, driverID string) error
	Get(ctx context.Context, driverID string) (DriverLocation, bool, error)
	SearchRadius(ctx context.Context, center Coordinates, radiusKm float64) ([]string, error)
}

// DriverEventType labels driver lifecycle events.
type DriverEventType string

const (
	EventDriverCreated DriverEventType = "driver.created"
	EventDriverUpdated DriverEventType = "driver.updated"
	EventDriverOnline  DriverEventType = "driver.online"
	EventDriverOffline DriverEventType = "driver.offline"
)

// DriverEvent is emitted on profile and presence changes.
type DriverEvent struct {
	ID        string          `json:"id"`
	DriverID  string          `json:"driverId"`
	Type      DriverEventType `json:"type"`
	Payload   map[string]any  `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EventPublisher delivers driver events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event DriverEvent) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
