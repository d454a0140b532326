package db

import (
	"errors"
	"fmt"
	"regexp"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

// DistanceCosine is cosine distance (1 - cosine similarity).
const DistanceCosine DistanceMetric = "COSINE"

var indexNameRe = regexp.MustCompile(`^[A-Za-z0-9_:-]+$`)

// HNSWField is the FLOAT32 vector attribute of an index.
// Zero M or EFConstruct leaves the server default in place.
type HNSWField struct {
	Name        string
	Dim         int
	Distance    DistanceMetric
	M           int
	EFConstruct int
}

// IndexDefinition describes an FT index over the hashes stored under Prefix.
// Hash fields not listed here are stored but not searchable.
type IndexDefinition struct {
	Name    string
	Prefix  string
	Numeric []string
	Vector  HNSWField
}

// Validate checks that the definition can be turned into an FT.CREATE call.
func (d *IndexDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("index name is required")
	}
	if !indexNameRe.MatchString(d.Name) {
		return fmt.Errorf("index name %q contains invalid characters", d.Name)
	}
	if d.Vector.Name == "" {
		return errors.New("vector field name is required")
	}
	if d.Vector.Dim <= 0 {
		return fmt.Errorf("vector field %q requires a positive dimension", d.Vector.Name)
	}

	seen := map[string]bool{d.Vector.Name: true}
	for _, name := range d.Numeric {
		if name == "" {
			return errors.New("numeric field name is required")
		}
		if seen[name] {
			return fmt.Errorf("duplicate field name %q", name)
		}
		seen[name] = true
	}
	return nil
}
