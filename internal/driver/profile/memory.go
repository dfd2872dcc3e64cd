package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/driverhub/internal/driver/domain"
)

// MemoryStore is an in-memory domain.ProfileStore for tests and local runs
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.DriverProfile
	clock    domain.Clock
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]domain.DriverProfile), clock: domain.SystemClock{}}
}

// Create stores a new profile, failing on a duplicate id.
func (m *MemoryStore) Create(_ context.Context, p domain.DriverProfile) (domain.DriverProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.profiles[p.DriverID]; exists {
		return domain.DriverProfile{}, fmt.Errorf("%w: %s", domain.ErrDriverExists, p.DriverID)
	}
	if p.VehicleType == "" {
		p.VehicleType = domain.DefaultVehicleType
	}
	now := m.clock.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.profiles[p.DriverID] = p
	return p, nil
}

// Update merges only the supplied patch fields.
func (m *MemoryStore) Update(_ context.Context, driverID string, patch domain.ProfilePatch) (domain.DriverProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, exists := m.profiles[driverID]
	if !exists {
		return domain.DriverProfile{}, fmt.Errorf("%w: %s", domain.ErrDriverNotFound, driverID)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.VehicleType != nil {
		p.VehicleType = *patch.VehicleType
	}
	if patch.LicensePlate != nil {
		p.LicensePlate = *patch.LicensePlate
	}
	if patch.PhoneNumber != nil {
		p.PhoneNumber = *patch.PhoneNumber
	}
	p.UpdatedAt = m.clock.Now()
	m.profiles[driverID] = p
	return p, nil
}

// Get returns a single profile or ErrDriverNotFound.
func (m *MemoryStore) Get(_ context.Context, driverID string) (domain.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, exists := m.profiles[driverID]
	if !exists {
		return domain.DriverProfile{}, fmt.Errorf("%w: %s", domain.ErrDriverNotFound, driverID)
	}
	return p, nil
}

// List returns all profiles ordered by driver id.
func (m *MemoryStore) List(_ context.Context) ([]domain.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profiles := make([]domain.DriverProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].DriverID < profiles[j].DriverID })
	return profiles, nil
}
