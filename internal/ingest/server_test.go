package ingest_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/example/driverhub/internal/driver/domain"
	"github.com/example/driverhub/internal/driver/profile"
	"github.com/example/driverhub/internal/driver/registry"
	"github.com/example/driverhub/internal/ingest"
)

type memIndex struct {
	entries map[string]domain.DriverLocation
}

func (m *memIndex) Upsert(_ context.Context, loc domain.DriverLocation) error {
	m.entries[loc.DriverID] = loc
	return nil
}

func (m *memIndex) Remove(_ context.Context, driverID string) error {
	delete(m.entries, driverID)
	return nil
}

func (m *memIndex) Get(_ context.Context, driverID string) (domain.DriverLocation, bool, error) {
	loc, ok := m.entries[driverID]
	return loc, ok, nil
}

func (m *memIndex) SearchRadius(context.Context, domain.Coordinates, float64) ([]string, error) {
	return nil, nil
}

type stubStream struct {
	grpc.ServerStream
	pings []*ingest.LocationPing
	next  int
	ack   *ingest.Ack
}

func (s *stubStream) Context() context.Context { return context.Background() }

func (s *stubStream) Recv() (*ingest.LocationPing, error) {
	if s.next >= len(s.pings) {
		return nil, io.EOF
	}
	ping := s.pings[s.next]
	s.next++
	return ping, nil
}

func (s *stubStream) SendAndClose(ack *ingest.Ack) error {
	s.ack = ack
	return nil
}

func newIngestFixture(t *testing.T) (*ingest.Server, *memIndex) {
	t.Helper()
	idx := &memIndex{entries: make(map[string]domain.DriverLocation)}
	profiles := profile.NewMemoryStore()
	_, err := profiles.Create(context.Background(), domain.DriverProfile{DriverID: "d1", Name: "Alice"})
	require.NoError(t, err)
	reg := registry.New(profiles, idx, nil, domain.SystemClock{}, zap.NewNop())
	return ingest.NewServer(reg, zap.NewNop()), idx
}

func TestStreamPingsAcceptsAndCounts(t *testing.T) {
	srv, idx := newIngestFixture(t)
	stream := &stubStream{pings: []*ingest.LocationPing{
		{DriverId: "d1", Lat: 37.7749, Lon: -122.4194, Ts: time.Now().UnixMilli()},
		{DriverId: "d1", Lat: 37.7750, Lon: -122.4190, Ts: time.Now().UnixMilli()},
	}}

	require.NoError(t, srv.StreamPings(stream))
	require.NotNil(t, stream.ack)
	require.Equal(t, int64(2), stream.ack.Accepted)

	loc, ok := idx.entries["d1"]
	require.True(t, ok)
	require.InDelta(t, 37.7750, loc.Latitude, 1e-9)
}

func TestStreamPingsDropsBadPings(t *testing.T) {
	srv, idx := newIngestFixture(t)
	stream := &stubStream{pings: []*ingest.LocationPing{
		{DriverId: "ghost", Lat: 1, Lon: 2},
		{DriverId: "d1", Lat: 91, Lon: 0},
		{DriverId: "d1", Lat: 37.7749, Lon: -122.4194},
	}}

	require.NoError(t, srv.StreamPings(stream))
	require.Equal(t, int64(1), stream.ack.Accepted)
	_, ok := idx.entries["ghost"]
	require.False(t, ok)
}

func TestStreamPingsOfflinePingRemovesEntry(t *testing.T) {
	srv, idx := newIngestFixture(t)
	stream := &stubStream{pings: []*ingest.LocationPing{
		{DriverId: "d1", Lat: 37.7749, Lon: -122.4194},
		{DriverId: "d1", Offline: true},
	}}

	require.NoError(t, srv.StreamPings(stream))
	require.Equal(t, int64(2), stream.ack.Accepted)
	_, ok := idx.entries["d1"]
	require.False(t, ok)
}
