package redis

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/fal1winter/mentorsys/internal/db"
)

func mentorIndex() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:    "semsync:mentor_profiles:idx",
		Prefix:  "semsync:mentor_profiles:",
		Numeric: []string{"id"},
		Vector:  db.HNSWField{Name: "vector", Dim: 512, Distance: db.DistanceCosine, M: 16, EFConstruct: 200},
	}
}

func TestCreateIndex(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.CREATE", "semsync:mentor_profiles:idx", "ON", "HASH",
			"PREFIX", "1", "semsync:mentor_profiles:",
			"SCHEMA",
			"id", "NUMERIC",
			"vector", "VECTOR", "HNSW", "10",
			"TYPE", "FLOAT32", "DIM", "512", "DISTANCE_METRIC", "COSINE",
			"M", "16", "EF_CONSTRUCTION", "200",
		)).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.CreateIndex(context.Background(), mentorIndex()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_Replies(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), command("FT.CREATE")).Return(mock.Result(mock.RedisError("Index already exists"))),
		c.EXPECT().Do(gomock.Any(), command("FT.CREATE")).Return(mock.ErrorResult(context.DeadlineExceeded)),
	)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, mentorIndex()); !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
	requireOpError(t, s.CreateIndex(ctx, mentorIndex()), db.OpCreateIndex)
}

func TestCreateIndex_InvalidDefinitionNeverReachesServer(t *testing.T) {
	s, _ := newMockStore(t)
	def := mentorIndex()
	def.Vector.Dim = 0

	if err := s.CreateIndex(context.Background(), def); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCreateArgs_ServerDefaults(t *testing.T) {
	args := createArgs(&db.IndexDefinition{
		Name:   "notes:idx",
		Vector: db.HNSWField{Name: "vector", Dim: 4},
	})
	want := []string{
		"notes:idx", "ON", "HASH", "SCHEMA",
		"vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32", "DIM", "4", "DISTANCE_METRIC", "COSINE",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v\nwant   %v", args, want)
	}
}

func TestDropIndex(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "a:idx")).Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "b:idx")).Return(mock.Result(mock.RedisError("Unknown Index name"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "c:idx")).Return(mock.Result(mock.RedisError("c:idx: no such index"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "d:idx")).Return(mock.ErrorResult(context.Canceled)),
	)
	ctx := context.Background()

	if err := s.DropIndex(ctx, "a:idx"); err != nil {
		t.Errorf("a: %v", err)
	}
	if err := s.DropIndex(ctx, "b:idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("b: expected ErrIndexNotFound, got %v", err)
	}
	if err := s.DropIndex(ctx, "c:idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("c: expected ErrIndexNotFound, got %v", err)
	}
	requireOpError(t, s.DropIndex(ctx, "d:idx"), db.OpDropIndex)
}

func TestIndexExists(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "present:idx")).
			Return(mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("present:idx")))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "absent:idx")).
			Return(mock.Result(mock.RedisError("Unknown index name"))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "down:idx")).
			Return(mock.ErrorResult(context.DeadlineExceeded)),
	)
	ctx := context.Background()

	if ok, err := s.IndexExists(ctx, "present:idx"); err != nil || !ok {
		t.Errorf("present: ok=%v err=%v", ok, err)
	}
	if ok, err := s.IndexExists(ctx, "absent:idx"); err != nil || ok {
		t.Errorf("absent: ok=%v err=%v", ok, err)
	}
	_, err := s.IndexExists(ctx, "down:idx")
	requireOpError(t, err, db.OpIndexInfo)
}
