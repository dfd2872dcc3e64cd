package ingest

import "google.golang.org/grpc"

// LocationPing is a single high-frequency position update.
type LocationPing struct {
	DriverId string
	Lat      float64
	Lon      float64
	Offline  bool
	Ts       int64
}

// Ack is returned when the stream closes.
type Ack struct {
	Accepted int64
}

// PingServer defines the gRPC contract for the ingest stream.
type PingServer interface {
	StreamPings(Ingest_StreamPingsServer) error
}

// RegisterPingServer registers the service implementation.
func RegisterPingServer(s *grpc.Server, srv PingServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "ingest.Ingest",
		HandlerType: (*PingServer)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    "StreamPings",
			Handler:       _Ingest_StreamPings_Handler,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}, srv)
}

// Ingest_StreamPingsServer defines the bidi stream interface.
type Ingest_StreamPingsServer interface {
	grpc.ServerStream
	SendAndClose(*Ack) error
	Recv() (*LocationPing, error)
}

func _Ingest_StreamPings_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PingServer).StreamPings(&ingestStreamServer{ServerStream: stream})
}

type ingestStreamServer struct {
	grpc.ServerStream
}

func (s *ingestStreamServer) SendAndClose(ack *Ack) error { return s.ServerStream.SendMsg(ack) }

func (s *ingestStreamServer) Recv() (*LocationPing, error) {
	msg := new(LocationPing)
	if err := s.ServerStream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
