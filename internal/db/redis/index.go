package redis

import (
	"context"
	"strconv"

	"github.com/fal1winter/mentorsys/internal/db"
)

// Fragments of the server reply for a missing index (Redis Stack and Redis 8 word it differently).
var missingIndexReplies = []string{"unknown index name", "no such index"}

// CreateIndex runs FT.CREATE. An existing index yields db.ErrIndexExists.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrorMentions(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex runs FT.DROPINDEX without DD, so the hashes survive.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	if err := s.do(ctx, s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()).Error(); err != nil {
		if serverErrorMentions(err, missingIndexReplies...) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists asks FT.INFO about name.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	err := s.do(ctx, s.b().Arbitrary("FT.INFO").Args(name).Build()).Error()
	switch {
	case err == nil:
		return true, nil
	case serverErrorMentions(err, missingIndexReplies...):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
}

// createArgs renders def as FT.CREATE arguments:
//
//	<name> ON HASH [PREFIX 1 <prefix>] SCHEMA <num> NUMERIC ... <vec> VECTOR HNSW <n> <attrs...>
func createArgs(def *db.IndexDefinition) []string {
	args := []string{def.Name, "ON", "HASH"}
	if def.Prefix != "" {
		args = append(args, "PREFIX", "1", def.Prefix)
	}

	args = append(args, "SCHEMA")
	for _, name := range def.Numeric {
		args = append(args, name, "NUMERIC")
	}

	v := def.Vector
	distance := v.Distance
	if distance == "" {
		distance = db.DistanceCosine
	}
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", string(distance),
	}
	if v.M > 0 {
		attrs = append(attrs, "M", strconv.Itoa(v.M))
	}
	if v.EFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(v.EFConstruct))
	}

	args = append(args, v.Name, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}
