package flight

import (
	"fmt"

	"github.com/hugr-lab/airport-solr/internal/msgpack"
)

// TicketData is the decoded content of a scan ticket: one split of a
// table, optionally restricted by a pushed-down filter.
type TicketData struct {
	Schema string `msgpack:"schema"`
	Table  string `msgpack:"table"`

	// Filter is the DuckDB filter pushdown JSON the split was planned with.
	Filter []byte `msgpack:"filter,omitempty"`

	// Start is the offset of the split's first row.
	Start int `msgpack:"start"`

	// Count is the number of rows of the split; zero reads to the end.
	Count int `msgpack:"count"`
}

// EncodeTicket creates an opaque MessagePack ticket.
func EncodeTicket(td TicketData) ([]byte, error) {
	if td.Schema == "" {
		return nil, fmt.Errorf("schema name cannot be empty")
	}
	if td.Table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if td.Start < 0 || td.Count < 0 {
		return nil, fmt.Errorf("invalid split start=%d count=%d", td.Start, td.Count)
	}
	data, err := msgpack.Encode(td)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses a ticket created by EncodeTicket.
func DecodeTicket(ticket []byte) (*TicketData, error) {
	if len(ticket) == 0 {
		return nil, fmt.Errorf("ticket cannot be empty")
	}

	var td TicketData
	if err := msgpack.Decode(ticket, &td); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if td.Schema == "" {
		return nil, fmt.Errorf("decoded ticket has empty schema name")
	}
	if td.Table == "" {
		return nil, fmt.Errorf("decoded ticket has empty table name")
	}
	if td.Start < 0 || td.Count < 0 {
		return nil, fmt.Errorf("decoded ticket has invalid split start=%d count=%d", td.Start, td.Count)
	}
	return &td, nil
}
