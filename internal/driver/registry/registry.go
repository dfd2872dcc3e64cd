// Package registry is the single entry point that reconciles the durable
// profile store with the ephemeral location index. All online/offline
// transitions and composite reads flow through it; nothing else touches the
// index for a status change.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/driverhub/internal/driver/domain"
	"github.com/example/driverhub/internal/driver/geo"
)

// DefaultSearchRadiusKm is applied when a proximity query omits the radius.
const DefaultSearchRadiusKm = 5.0

// Registry orchestrates the two stores.
type Registry struct {
	profiles domain.ProfileStore
	index    domain.LocationIndex
	events   domain.EventPublisher
	clock    domain.Clock
	logger   *zap.Logger
}

// New constructs a Registry. events may be nil when no bus is configured.
func New(profiles domain.ProfileStore, index domain.LocationIndex, events domain.EventPublisher, clock domain.Clock, logger *zap.Logger) *Registry {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{profiles: profiles, index: index, events: events, clock: clock, logger: logger}
}

// CreateDriver stores a new profile. Location data is never accepted here.
func (r *Registry) CreateDriver(ctx context.Context, profile domain.DriverProfile) (domain.DriverProfile, error) {
	if strings.TrimSpace(profile.DriverID) == "" {
		return domain.DriverProfile{}, domain.NewValidationError("driverId", "is required")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return domain.DriverProfile{}, domain.NewValidationError("name", "is required")
	}
	created, err := r.profiles.Create(ctx, profile)
	if err != nil {
		return domain.DriverProfile{}, err
	}
	r.logger.Info("driver created", zap.String("driver_id", created.DriverID))
	return created, nil
}

// UpdateDriver merges the supplied fields into an existing profile.
func (r *Registry) UpdateDriver(ctx context.Context, driverID string, patch domain.ProfilePatch) (domain.DriverProfile, error) {
	if strings.TrimSpace(driverID) == "" {
		return domain.DriverProfile{}, domain.NewValidationError("driverId", "is required")
	}
	updated, err := r.profiles.Update(ctx, driverID, patch)
	if err != nil {
		return domain.DriverProfile{}, err
	}
	r.logger.Info("driver updated", zap.String("driver_id", driverID))
	return updated, nil
}

// SetStatus is the sole state-transition entry point. Going online requires
// coordinates and writes the location entry; going offline removes it,
// whether or not one existed. The profile is checked first so an unknown
// driver fails before any index side effect.
func (r *Registry) SetStatus(ctx context.Context, driverID string, online bool, coords *domain.Coordinates) (domain.DriverDetails, error) {
	profile, err := r.profiles.Get(ctx, driverID)
	if err != nil {
		return domain.DriverDetails{}, err
	}

	if !online {
		if err := r.index.Remove(ctx, driverID); err != nil {
			return domain.DriverDetails{}, err
		}
		r.publish(ctx, driverID, domain.EventDriverOffline, nil)
		r.logger.Info("driver offline", zap.String("driver_id", driverID))
		return domain.DriverDetails{DriverProfile: profile, Online: false}, nil
	}

	if coords == nil {
		return domain.DriverDetails{}, domain.NewValidationError("location", "latitude and longitude are required when going online")
	}
	if err := geo.ValidateCoordinates(*coords); err != nil {
		return domain.DriverDetails{}, err
	}

	now := r.clock.Now()
	loc := domain.DriverLocation{
		DriverID:  driverID,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Timestamp: now,
		Online:    true,
	}
	if err := r.index.Upsert(ctx, loc); err != nil {
		return domain.DriverDetails{}, err
	}
	r.publish(ctx, driverID, domain.EventDriverOnline, map[string]any{
		"latitude":  coords.Latitude,
		"longitude": coords.Longitude,
	})
	r.logger.Info("driver online",
		zap.String("driver_id", driverID),
		zap.Float64("latitude", coords.Latitude),
		zap.Float64("longitude", coords.Longitude))

	details := domain.DriverDetails{DriverProfile: profile, Online: true}
	details.Latitude = &loc.Latitude
	details.Longitude = &loc.Longitude
	details.Timestamp = &loc.Timestamp
	return details, nil
}

// UpdateLocation handles high-frequency position pings from an online
// driver. online defaults to true at the transport layer; an explicit false
// behaves as an offline transition and ignores the supplied coordinates.
func (r *Registry) UpdateLocation(ctx context.Context, driverID string, coords domain.Coordinates, online bool) (domain.DriverLocation, error) {
	if !online {
		if _, err := r.SetStatus(ctx, driverID, false, nil); err != nil {
			return domain.DriverLocation{}, err
		}
		return domain.DriverLocation{DriverID: driverID, Online: false}, nil
	}

	if _, err := r.profiles.Get(ctx, driverID); err != nil {
		return domain.DriverLocation{}, err
	}
	if err := geo.ValidateCoordinates(coords); err != nil {
		return domain.DriverLocation{}, err
	}

	loc := domain.DriverLocation{
		DriverID:  driverID,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Timestamp: r.clock.Now(),
		Online:    true,
	}
	if err := r.index.Upsert(ctx, loc); err != nil {
		return domain.DriverLocation{}, err
	}
	return loc, nil
}

// GetDriverDetails merges the profile with the live location when one
// exists. A missing or unreadable location degrades to a profile-only
// result; only a missing profile fails the call.
func (r *Registry) GetDriverDetails(ctx context.Context, driverID string) (domain.DriverDetails, error) {
	profile, err := r.profiles.Get(ctx, driverID)
	if err != nil {
		return domain.DriverDetails{}, err
	}

	details := domain.DriverDetails{DriverProfile: profile}
	loc, found, err := r.index.Get(ctx, driverID)
	if err != nil {
		r.logger.Warn("location fetch failed, returning profile only",
			zap.String("driver_id", driverID), zap.Error(err))
		return details, nil
	}
	if found {
		details.Latitude = &loc.Latitude
		details.Longitude = &loc.Longitude
		details.Timestamp = &loc.Timestamp
		details.Online = loc.Online
	}
	return details, nil
}

// GetDriverLocation returns the live location entry. Offline and unknown
// drivers are the same externally observable condition; neither consults the
// profile store.
func (r *Registry) GetDriverLocation(ctx context.Context, driverID string) (domain.DriverLocation, error) {
	loc, found, err := r.index.Get(ctx, driverID)
	if err != nil {
		return domain.DriverLocation{}, err
	}
	if !found {
		return domain.DriverLocation{}, fmt.Errorf("%w: %s", domain.ErrLocationNotFound, driverID)
	}
	return loc, nil
}

// FindNearbyDrivers returns the online drivers within radiusKm of the
// center. The geo set only generates candidates; each hit is re-read from
// the hash so a driver that went offline between the index match and now is
// dropped rather than returned stale. Distances come from the authoritative
// hash coordinates, not the index.
func (r *Registry) FindNearbyDrivers(ctx context.Context, center domain.Coordinates, radiusKm float64) ([]domain.DriverLocation, error) {
	if err := geo.ValidateCoordinates(center); err != nil {
		return nil, err
	}
	if err := geo.ValidateRadiusKm(radiusKm); err != nil {
		return nil, err
	}

	candidates, err := r.index.SearchRadius(ctx, center, radiusKm)
	if err != nil {
		return nil, err
	}

	drivers := make([]domain.DriverLocation, 0, len(candidates))
	for _, driverID := range candidates {
		loc, found, err := r.index.Get(ctx, driverID)
		if err != nil {
			return nil, err
		}
		if !found || !loc.Online {
			continue
		}
		loc.DistanceKm = geo.DistanceKm(center, domain.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude})
		drivers = append(drivers, loc)
	}
	r.logger.Debug("nearby search",
		zap.Int("candidates", len(candidates)),
		zap.Int("online", len(drivers)),
		zap.Float64("radius_km", radiusKm))
	return drivers, nil
}

// ListDrivers returns every stored profile.
func (r *Registry) ListDrivers(ctx context.Context) ([]domain.DriverProfile, error) {
	return r.profiles.List(ctx)
}

func (r *Registry) publish(ctx context.Context, driverID string, eventType domain.DriverEventType, payload map[string]any) {
	if r.events == nil {
		return
	}
	event := domain.DriverEvent{
		ID:        uuid.NewString(),
		DriverID:  driverID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: r.clock.Now(),
	}
	if err := r.events.Publish(ctx, event); err != nil {
		r.logger.Warn("event publish failed", zap.String("driver_id", driverID), zap.Error(err))
	}
}
