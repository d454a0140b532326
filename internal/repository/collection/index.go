package collection

import (
	"github.com/fal1winter/mentorsys/internal/db"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

// Indexed field names of every collection.
const (
	FieldID     = "id"
	FieldVector = "vector"
)

// buildIndex returns the index of a kind: numeric id plus an HNSW/COSINE vector.
// Attributes live in the hash but are only returned, never queried.
func buildIndex(prefix string, kind entity.Kind, vectorDim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	def := &db.IndexDefinition{
		Name:    IndexName(prefix, kind),
		Prefix:  KeyPrefix(prefix, kind),
		Numeric: []string{FieldID},
		Vector: db.HNSWField{
			Name:        FieldVector,
			Dim:         vectorDim,
			Distance:    db.DistanceCosine,
			M:           hnsw.M,
			EFConstruct: hnsw.EFConstruct,
		},
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
