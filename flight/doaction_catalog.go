package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/internal/msgpack"
	"github.com/hugr-lab/airport-solr/internal/serialize"
)

// zeroHash is the catalog-level content hash; the catalog root carries no
// inline contents of its own.
const zeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// tableAppMetadata is the app_metadata the Airport extension reads from a
// table's FlightInfo.
func tableAppMetadata(schemaName string, def *catalog.TableDef) ([]byte, error) {
	b, err := msgpack.Encode(map[string]any{
		"type":         "table",
		"schema":       schemaName,
		"catalog":      "",
		"name":         def.Name,
		"comment":      def.Comment,
		"input_schema": nil,
		"action_name":  nil,
		"description":  nil,
		"extra_data":   nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode app metadata: %w", err)
	}
	return b, nil
}

// handleListSchemas returns the catalog root used by ATTACH.
//
// The body is a compressed MessagePack catalog root with the single served
// schema. Its contents inline one serialized FlightInfo per table, each with
// a whole-table endpoint.
func (s *Server) handleListSchemas(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var params struct {
		CatalogName string `msgpack:"catalog_name"`
	}
	if err := msgpack.DecodeOptional(action.GetBody(), &params); err != nil {
		s.logger.Warn("Failed to decode list_schemas parameters", "error", err)
	}

	contents, hash, err := s.schemaContents(ctx)
	if err != nil {
		s.logger.Error("Failed to serialize schema contents", "schema", s.schema, "error", err)
		return toStatus("list schemas", err)
	}

	root := map[string]any{
		"contents": map[string]any{
			"sha256":     zeroHash,
			"url":        nil,
			"serialized": nil,
		},
		"schemas": []map[string]any{{
			"name":        s.schema,
			"description": "",
			"tags":        map[string]string{},
			"contents": map[string]any{
				"sha256":     hash,
				"url":        nil,
				"serialized": string(contents),
			},
			"is_default": true,
		}},
		"version_info": map[string]any{
			"catalog_version": uint64(1),
			"is_fixed":        true,
		},
	}

	body, err := serialize.Content(root)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to encode catalog: %v", err)
	}
	if err := stream.Send(&flight.Result{Body: body}); err != nil {
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}

	s.logger.Debug("handleListSchemas completed",
		"catalog_name", params.CatalogName,
		"bytes", len(body),
		"sha256", hash,
	)
	return nil
}

// schemaContents serializes a FlightInfo for each table of the catalog.
func (s *Server) schemaContents(ctx context.Context) ([]byte, string, error) {
	defs, err := s.catalog.Tables(ctx)
	if err != nil {
		return nil, "", err
	}

	infos := make([][]byte, 0, len(defs))
	for i := range defs {
		def := &defs[i]
		endpoint, err := s.wholeTableEndpoint(def.Name)
		if err != nil {
			return nil, "", err
		}
		info, err := s.flightInfo(def, []*flight.FlightEndpoint{endpoint}, -1)
		if err != nil {
			return nil, "", err
		}
		b, err := proto.Marshal(info)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal FlightInfo: %w", err)
		}
		infos = append(infos, b)
	}
	return serialize.ContentWithHash(infos)
}

// handleEndpoints plans the endpoints of a scan.
//
// Request: {"descriptor": <FlightDescriptor protobuf>,
// "parameters": {"json_filters": "<filter json>", "column_ids": [...]}}
// Response: MessagePack array of FlightEndpoint protobufs.
//
// The filter pushed down by the client is carried in every ticket.
func (s *Server) handleEndpoints(ctx context.Context, action *flight.Action, stream flight.FlightService_DoActionServer) error {
	var request struct {
		Descriptor string `msgpack:"descriptor"`
		Parameters struct {
			JSONFilters string   `msgpack:"json_filters"`
			ColumnIDs   []uint64 `msgpack:"column_ids"`
		} `msgpack:"parameters"`
	}
	if err := msgpack.DecodeOptional(action.GetBody(), &request); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	desc := &flight.FlightDescriptor{}
	if err := proto.Unmarshal([]byte(request.Descriptor), desc); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid descriptor: %v", err)
	}
	if desc.GetType() != flight.DescriptorPATH || len(desc.GetPath()) != 2 {
		return status.Error(codes.InvalidArgument, "descriptor must be PATH type with 2 elements [schema, table]")
	}
	schemaName, tableName := desc.GetPath()[0], desc.GetPath()[1]

	var filter []byte
	if request.Parameters.JSONFilters != "" {
		filter = []byte(request.Parameters.JSONFilters)
	}

	s.logger.Debug("handleEndpoints called",
		append(logAttrs(ctx),
			"schema", schemaName,
			"table", tableName,
			"has_filters", filter != nil,
			"column_count", len(request.Parameters.ColumnIDs),
		)...,
	)

	endpoints, _, err := s.planEndpoints(ctx, schemaName, tableName, filter)
	if err != nil {
		return toStatus("plan endpoints", err)
	}
	encoded, err := marshalEndpoints(endpoints)
	if err != nil {
		return status.Errorf(codes.Internal, "%v", err)
	}
	return sendResult(stream, encoded)
}
