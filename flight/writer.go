package flight

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

type dataSender interface {
	Send(*flight.FlightData) error
}

type payloadState int

const (
	payloadInit payloadState = iota
	payloadSchemaSent
	payloadStreaming
)

// exchangePayloadWriter sends IPC payloads as FlightData. The record that
// follows the schema message is dropped: Begin writes an empty batch only to
// push the schema out before any input is consumed.
type exchangePayloadWriter struct {
	stream dataSender
	state  payloadState
}

func (w *exchangePayloadWriter) Start() error { return nil }

func (w *exchangePayloadWriter) WritePayload(p ipc.Payload) error {
	switch w.state {
	case payloadInit:
		w.state = payloadSchemaSent
	case payloadSchemaSent:
		w.state = payloadStreaming
		return nil
	}
	meta := p.Meta()
	defer meta.Release()

	var body bytes.Buffer
	if err := p.SerializeBody(&body); err != nil {
		return err
	}
	return w.stream.Send(&flight.FlightData{
		DataHeader: meta.Bytes(),
		DataBody:   body.Bytes(),
	})
}

func (w *exchangePayloadWriter) Close() error { return nil }

// SchemaWriter writes record batches to a DoExchange stream and can send
// the schema before the first batch.
type SchemaWriter struct {
	*ipc.Writer
	allocator memory.Allocator
	schema    *arrow.Schema
}

// NewSchemaWriter returns a writer of schema to stream.
func NewSchemaWriter(stream dataSender, schema *arrow.Schema, allocator memory.Allocator) *SchemaWriter {
	w := ipc.NewWriterWithPayloadWriter(&exchangePayloadWriter{stream: stream},
		ipc.WithAllocator(allocator),
		ipc.WithSchema(schema),
	)
	return &SchemaWriter{Writer: w, allocator: allocator, schema: schema}
}

// Begin sends the schema message. It must be called once, before Write.
func (w *SchemaWriter) Begin() error {
	b := array.NewRecordBuilder(w.allocator, w.schema)
	defer b.Release()
	empty := b.NewRecordBatch()
	defer empty.Release()
	return w.Write(empty)
}
