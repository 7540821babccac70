package flight

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GetFlightInfo plans an unfiltered scan of a table.
//
// The descriptor.Path should contain [schema_name, table_name]. The returned
// FlightInfo carries the table schema, the number of rows and one endpoint
// per split.
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = withRequestMeta(ctx)

	if desc.GetType() != flight.DescriptorPATH {
		return nil, status.Error(codes.InvalidArgument, "descriptor must be PATH type")
	}
	path := desc.GetPath()
	if len(path) != 2 {
		return nil, status.Error(codes.InvalidArgument, "path must contain exactly 2 elements: [schema_name, table_name]")
	}
	schemaName, tableName := path[0], path[1]

	def, err := s.lookup(ctx, schemaName, tableName)
	if err != nil {
		return nil, toStatus("get flight info", err)
	}
	endpoints, total, err := s.planEndpoints(ctx, schemaName, tableName, nil)
	if err != nil {
		s.logger.Error("Failed to plan scan",
			append(logAttrs(ctx), "table", tableName, "error", err)...,
		)
		return nil, toStatus("plan scan", err)
	}
	info, err := s.flightInfo(def, endpoints, total)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}

	s.logger.Debug("GetFlightInfo completed",
		"schema", schemaName,
		"table", tableName,
		"rows", total,
		"endpoints", len(endpoints),
	)
	return info, nil
}
