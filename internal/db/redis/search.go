package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/fal1winter/mentorsys/internal/db"
)

// scoreField is the alias FT.SEARCH gives the KNN distance.
const scoreField = "__vector_score"

// SearchKNN returns the K hashes nearest to q.Vector, nearest first.
// Entry scores are 1 - cosine distance unless q.RawScores is set.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("knn: index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("knn: vector is required")
	case q.K <= 0:
		return nil, fmt.Errorf("knn: k must be positive, got %d", q.K)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q)...).Build()
	reply, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return decodeHits(reply, q.RawScores)
}

// SearchCount runs query with LIMIT 0 0 and returns the match total.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0").Build()
	reply, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(reply) == 0 {
		return 0, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("count: decode total: %w", err)
	}
	return int(total), nil
}

func knnArgs(q *db.KNNQuery) []string {
	args := []string{q.IndexName, fmt.Sprintf("*=>[KNN %d @vector $BLOB]", q.K)}
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n))
		args = append(args, q.ReturnFields...)
	}
	return append(args,
		"SORTBY", scoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)
}

// decodeHits reads the RESP2 reply [total, key1, [f, v, ...], key2, [...], ...].
// Malformed pairs are skipped, and so are hits whose distance is not a finite
// number, which the server reports for zero vectors as "nan" or "-nan".
func decodeHits(reply []rueidis.RedisMessage, rawScores bool) (*db.SearchResult, error) {
	if len(reply) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := reply[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("knn: decode total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(reply); i += 2 {
		key, err := reply[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := reply[i+1].ToArray()
		if err != nil {
			continue
		}

		hit := db.SearchEntry{Key: key, Fields: fieldMap(pairs)}
		if raw, ok := hit.Fields[scoreField]; ok {
			delete(hit.Fields, scoreField)
			d, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			hit.Score = d
			if !rawScores {
				hit.Score = 1 - d
			}
		}
		res.Entries = append(res.Entries, hit)
	}
	return res, nil
}

func fieldMap(pairs []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for j := 0; j+1 < len(pairs); j += 2 {
		name, nameErr := pairs[j].ToString()
		value, valueErr := pairs[j+1].ToString()
		if nameErr == nil && valueErr == nil {
			m[name] = value
		}
	}
	return m
}

// vectorToBytes packs v as little-endian FLOAT32, the layout of an indexed VECTOR field.
func vectorToBytes(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return string(buf)
}
