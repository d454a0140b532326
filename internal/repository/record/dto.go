package record

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/fal1winter/mentorsys/internal/domain/entity"
	domrec "github.com/fal1winter/mentorsys/internal/domain/record"
	"github.com/fal1winter/mentorsys/internal/repository/collection"
)

// buildHashFields converts a record into a flat map[string]string for HSET.
func buildHashFields(rec domrec.Record) map[string]string {
	m := make(map[string]string, 2+len(rec.Attributes()))
	for k, v := range rec.Attributes() {
		m[k] = v
	}
	m[collection.FieldID] = strconv.FormatInt(rec.ID(), 10)
	m[collection.FieldVector] = vectorToBytes(rec.Vector())
	return m
}

// parseHashFields converts a flat hash map back into a record.
func parseHashFields(kind entity.Kind, id int64, m map[string]string) (domrec.Record, error) {
	vector, err := bytesToVector(m[collection.FieldVector])
	if err != nil {
		return domrec.Record{}, fmt.Errorf("%s %d: %w", kind, id, err)
	}
	attrs := make(map[string]string, len(m))
	for k, v := range m {
		if k == collection.FieldID || k == collection.FieldVector {
			continue
		}
		attrs[k] = v
	}
	return domrec.New(kind, id, vector, attrs), nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) ([]float32, error) {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("malformed vector: %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
