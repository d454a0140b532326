package embcache

import (
	"slices"
	"testing"
)

func TestVectorCodec(t *testing.T) {
	in := []float32{0.6, -0.8, 0, 1e-7}
	data := encodeVector(in)
	if len(data) != 16 {
		t.Fatalf("encoded %d bytes, want 16", len(data))
	}
	out, err := decodeVector(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !slices.Equal(in, out) {
		t.Errorf("decoded %v, want %v", out, in)
	}

	for _, bad := range [][]byte{nil, {1, 2, 3}, make([]byte, 5)} {
		if _, err := decodeVector(bad); err == nil {
			t.Errorf("decodeVector(%d bytes) should fail", len(bad))
		}
	}
}
