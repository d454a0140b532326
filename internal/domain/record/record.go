// Package record holds the unit stored in a vector collection.
package record

import "github.com/fal1winter/mentorsys/internal/domain/entity"

// Record is one (id, vector, attributes) tuple of a collection. At most one
// record exists per id and kind; writing a record replaces any previous one.
type Record struct {
	kind       entity.Kind
	id         int64
	vector     []float32
	attributes map[string]string
}

// New creates a record.
func New(kind entity.Kind, id int64, vector []float32, attributes map[string]string) Record {
	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return Record{kind: kind, id: id, vector: vector, attributes: attrs}
}

// Kind returns the entity kind.
func (r Record) Kind() entity.Kind { return r.kind }

// ID returns the entity identifier.
func (r Record) ID() int64 { return r.id }

// Vector returns the stored embedding.
func (r Record) Vector() []float32 { return r.vector }

// Attributes returns the stored attributes.
func (r Record) Attributes() map[string]string { return r.attributes }
