package msgpack

import "testing"

type payload struct {
	Schema string `msgpack:"schema"`
	Start  int    `msgpack:"start"`
	Filter []byte `msgpack:"filter,omitempty"`
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(payload{Schema: "main", Start: 42, Filter: []byte(`{}`)})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	var got payload
	if err := Decode(data, &got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Schema != "main" || got.Start != 42 || string(got.Filter) != "{}" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	var p payload
	if err := Decode(nil, &p); err == nil {
		t.Error("expected error for empty data")
	}
	if err := Decode([]byte{0xc1}, &p); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestDecodeOptional(t *testing.T) {
	p := payload{Schema: "keep"}
	if err := DecodeOptional(nil, &p); err != nil {
		t.Fatalf("DecodeOptional failed: %v", err)
	}
	if p.Schema != "keep" {
		t.Errorf("expected untouched value, got '%s'", p.Schema)
	}
}
