// Package ingest accepts streamed location pings and feeds them through the
// registry, so streamed updates obey the same validation and store ordering
// as the HTTP path.
package ingest

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/example/driverhub/internal/driver/domain"
	"github.com/example/driverhub/internal/driver/registry"
)

// Server implements PingServer on top of the registry.
type Server struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewServer constructs a server.
func NewServer(reg *registry.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{reg: reg, logger: logger}
}

// StreamPings ingests pings until the client closes the stream. Pings for
// unknown drivers or with bad coordinates are dropped and counted against
// the ack, not the stream: one bad ping must not kill a long-lived feed.
func (s *Server) StreamPings(stream Ingest_StreamPingsServer) error {
	var accepted int64
	for {
		ping, err := stream.Recv()
		if err == io.EOF {
			return stream.SendAndClose(&Ack{Accepted: accepted})
		}
		if err != nil {
			return err
		}
		_, err = s.reg.UpdateLocation(stream.Context(), ping.DriverId, domain.Coordinates{
			Latitude:  ping.Lat,
			Longitude: ping.Lon,
		}, !ping.Offline)
		if err != nil {
			var validation *domain.ValidationError
			if errors.Is(err, domain.ErrDriverNotFound) || errors.As(err, &validation) {
				s.logger.Warn("dropping ping", zap.String("driver_id", ping.DriverId), zap.Error(err))
				continue
			}
			return err
		}
		accepted++
	}
}
