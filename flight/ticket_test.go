package flight

import (
	"bytes"
	"testing"
)

func TestTicketRoundTrip(t *testing.T) {
	in := TicketData{
		Schema: "main",
		Table:  "movies",
		Filter: []byte(`{"filters":[]}`),
		Start:  200,
		Count:  100,
	}
	ticket, err := EncodeTicket(in)
	if err != nil {
		t.Fatalf("EncodeTicket failed: %v", err)
	}
	out, err := DecodeTicket(ticket)
	if err != nil {
		t.Fatalf("DecodeTicket failed: %v", err)
	}
	if out.Schema != in.Schema || out.Table != in.Table {
		t.Errorf("expected %s.%s, got %s.%s", in.Schema, in.Table, out.Schema, out.Table)
	}
	if !bytes.Equal(out.Filter, in.Filter) {
		t.Errorf("expected filter '%s', got '%s'", in.Filter, out.Filter)
	}
	if out.Start != 200 || out.Count != 100 {
		t.Errorf("expected split 200+100, got %d+%d", out.Start, out.Count)
	}
}

func TestEncodeTicketInvalid(t *testing.T) {
	tests := []struct {
		name string
		td   TicketData
	}{
		{"empty schema", TicketData{Table: "movies"}},
		{"empty table", TicketData{Schema: "main"}},
		{"negative start", TicketData{Schema: "main", Table: "movies", Start: -1}},
		{"negative count", TicketData{Schema: "main", Table: "movies", Count: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeTicket(tt.td); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeTicketInvalid(t *testing.T) {
	tests := []struct {
		name   string
		ticket []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xc1, 0x00, 0x01}},
		{"json", []byte(`{"schema":"main","table":"movies"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTicket(tt.ticket); err == nil {
				t.Error("expected error")
			}
		})
	}
}
