package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListFlights sends one FlightInfo per catalog table, each with a single
// endpoint reading the whole table. Row counts are not computed.
//
// Criteria parameter is currently ignored (returns all tables).
func (s *Server) ListFlights(_ *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := withRequestMeta(stream.Context())

	defs, err := s.catalog.Tables(ctx)
	if err != nil {
		s.logger.Error("Failed to list tables", "error", err)
		return toStatus("list flights", err)
	}

	for i := range defs {
		def := &defs[i]
		endpoint, err := s.wholeTableEndpoint(def.Name)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
		}
		info, err := s.flightInfo(def, []*flight.FlightEndpoint{endpoint}, -1)
		if err != nil {
			return status.Errorf(codes.Internal, "%v", err)
		}
		if err := stream.Send(info); err != nil {
			s.logger.Error("Failed to send FlightInfo", "table", def.Name, "error", err)
			return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
		}
	}

	s.logger.Debug("ListFlights completed", "tables", len(defs))
	return nil
}
