package profile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/driverhub/internal/driver/domain"
	"github.com/example/driverhub/internal/driver/profile"
)

func TestMemoryStoreCreate(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, domain.DriverProfile{DriverID: "d1", Name: "Alice"})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultVehicleType, created.VehicleType)
	require.False(t, created.CreatedAt.IsZero())

	_, err = store.Create(ctx, domain.DriverProfile{DriverID: "d1", Name: "Mallory"})
	require.ErrorIs(t, err, domain.ErrDriverExists)

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)
}

func TestMemoryStoreCreateKeepsExplicitVehicleType(t *testing.T) {
	store := profile.NewMemoryStore()

	created, err := store.Create(context.Background(), domain.DriverProfile{DriverID: "d1", Name: "Alice", VehicleType: "suv"})
	require.NoError(t, err)
	require.Equal(t, "suv", created.VehicleType)
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, domain.DriverProfile{DriverID: "d1", Name: "Alice", PhoneNumber: "555-0100"})
	require.NoError(t, err)

	name := "Alicia"
	plate := "XYZ-987"
	updated, err := store.Update(ctx, "d1", domain.ProfilePatch{Name: &name, LicensePlate: &plate})
	require.NoError(t, err)
	require.Equal(t, "Alicia", updated.Name)
	require.Equal(t, "XYZ-987", updated.LicensePlate)
	require.Equal(t, "555-0100", updated.PhoneNumber)

	_, err = store.Update(ctx, "missing", domain.ProfilePatch{Name: &name})
	require.ErrorIs(t, err, domain.ErrDriverNotFound)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := profile.NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrDriverNotFound)
}

func TestMemoryStoreListOrdered(t *testing.T) {
	store := profile.NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"d3", "d1", "d2"} {
		_, err := store.Create(ctx, domain.DriverProfile{DriverID: id, Name: "driver " + id})
		require.NoError(t, err)
	}

	profiles, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	require.Equal(t, "d1", profiles[0].DriverID)
	require.Equal(t, "d2", profiles[1].DriverID)
	require.Equal(t, "d3", profiles[2].DriverID)
}
