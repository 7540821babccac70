package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/airport-solr/catalog"
	"github.com/hugr-lab/airport-solr/internal/metrics"
	"github.com/hugr-lab/airport-solr/table"
)

// lookup returns the catalog definition of schemaName.tableName.
func (s *Server) lookup(ctx context.Context, schemaName, tableName string) (*catalog.TableDef, error) {
	if schemaName != s.schema {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, schemaName)
	}
	def, err := s.catalog.Table(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, schemaName, tableName)
	}
	return def, nil
}

// open opens a handle of schemaName.tableName. A non-empty filter replaces
// the filter of the table definition.
func (s *Server) open(ctx context.Context, schemaName, tableName string, filter []byte) (*catalog.TableDef, *table.Handle, error) {
	def, err := s.lookup(ctx, schemaName, tableName)
	if err != nil {
		return nil, nil, err
	}
	cfg := def.Config
	if len(filter) > 0 {
		cfg.Filter = filter
	}
	h, err := table.New(ctx, cfg, table.Options{
		Registry:   s.registry,
		Translator: s.translator,
		Logger:     s.logger,
		Allocator:  s.allocator,
	})
	if err != nil {
		return nil, nil, err
	}
	metrics.CounterHandlesOpened.Inc()
	return def, h, nil
}

// split is one range of rows served by a single endpoint.
type split struct {
	start int
	count int
}

// splitRows cuts total rows into ranges of at most size rows. The last
// range reads to the end so rows added after planning are not lost.
func splitRows(total int64, size int) []split {
	if total <= int64(size) {
		return []split{{start: 0, count: 0}}
	}
	n := int((total + int64(size) - 1) / int64(size))
	splits := make([]split, n)
	for i := range splits {
		splits[i] = split{start: i * size, count: size}
	}
	splits[n-1].count = 0
	return splits
}

// planEndpoints counts the matching rows of a table and returns one
// endpoint per split with the total row count. A faceted table is served by
// a single endpoint and reports an unknown total (-1).
func (s *Server) planEndpoints(ctx context.Context, schemaName, tableName string, filter []byte) ([]*flight.FlightEndpoint, int64, error) {
	def, h, err := s.open(ctx, schemaName, tableName, filter)
	if err != nil {
		return nil, 0, err
	}

	total := int64(-1)
	splits := []split{{}}
	if def.Config.FacetField == "" {
		if total, err = h.Count(ctx); err != nil {
			return nil, 0, err
		}
		splits = splitRows(total, s.splitSize)
	}

	endpoints := make([]*flight.FlightEndpoint, 0, len(splits))
	for _, sp := range splits {
		ticket, err := EncodeTicket(TicketData{
			Schema: schemaName,
			Table:  tableName,
			Filter: filter,
			Start:  sp.start,
			Count:  sp.count,
		})
		if err != nil {
			return nil, 0, err
		}
		endpoint := &flight.FlightEndpoint{
			Ticket: &flight.Ticket{Ticket: ticket},
		}
		if s.address != "" {
			endpoint.Location = []*flight.Location{{Uri: "grpc://" + s.address}}
		}
		endpoints = append(endpoints, endpoint)
	}

	s.logger.Debug("Planned table scan",
		"table", tableName,
		"rows", total,
		"endpoints", len(endpoints),
	)
	return endpoints, total, nil
}

// flightInfo describes a table with the given endpoints.
func (s *Server) flightInfo(def *catalog.TableDef, endpoints []*flight.FlightEndpoint, total int64) (*flight.FlightInfo, error) {
	appMetadata, err := tableAppMetadata(s.schema, def)
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema: flight.SerializeSchema(def.Config.Schema, s.allocator),
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{s.schema, def.Name},
		},
		Endpoint:     endpoints,
		TotalRecords: total,
		TotalBytes:   -1,
		AppMetadata:  appMetadata,
	}, nil
}

// wholeTableEndpoint is a single endpoint reading every row of a table.
func (s *Server) wholeTableEndpoint(tableName string) (*flight.FlightEndpoint, error) {
	ticket, err := EncodeTicket(TicketData{Schema: s.schema, Table: tableName})
	if err != nil {
		return nil, err
	}
	return &flight.FlightEndpoint{Ticket: &flight.Ticket{Ticket: ticket}}, nil
}

// marshalEndpoints serializes endpoints as protobuf strings, the form the
// endpoints action returns.
func marshalEndpoints(endpoints []*flight.FlightEndpoint) ([]string, error) {
	out := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		b, err := proto.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal endpoint: %w", err)
		}
		out = append(out, string(b))
	}
	return out, nil
}
