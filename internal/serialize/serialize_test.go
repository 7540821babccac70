package serialize

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("solr collection ", 100))
	compressed, err := Compress(data)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Errorf("expected compression, got %d >= %d bytes", len(compressed), len(data))
	}
	out, err := Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("round trip changed the data")
	}
}

func TestCompressEmpty(t *testing.T) {
	out, err := Compress(nil)
	if err != nil || len(out) != 0 {
		t.Errorf("expected empty output, got %d bytes, %v", len(out), err)
	}
}

func TestContent(t *testing.T) {
	type entry struct {
		Name   string   `msgpack:"name"`
		Tables []string `msgpack:"tables"`
	}
	in := entry{Name: "books", Tables: []string{"a", "b"}}
	content, hash, err := ContentWithHash(in)
	if err != nil {
		t.Fatalf("ContentWithHash failed: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("expected hex sha256, got '%s'", hash)
	}

	var out entry
	if err := DecodeContent(content, &out); err != nil {
		t.Fatalf("DecodeContent failed: %v", err)
	}
	if out.Name != "books" || len(out.Tables) != 2 {
		t.Errorf("unexpected content %+v", out)
	}

	_, again, _ := ContentWithHash(in)
	if again != hash {
		t.Error("expected stable hash for equal input")
	}
}
