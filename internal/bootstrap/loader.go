// Package bootstrap rebuilds the mentor and student collections from the relational source.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/document"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

const (
	mentorQuery  = "SELECT id, name, research_areas, bio, institution, title FROM mentors ORDER BY id"
	studentQuery = "SELECT id, name, research_interests, bio, current_institution, major FROM students ORDER BY id"
)

// ErrUnsupportedKind is returned for kinds the relational source does not hold.
var ErrUnsupportedKind = fmt.Errorf("kind not loadable from the database: %w", domain.ErrInvalidKind)

// Indexer stores one document in its collection.
type Indexer interface {
	Index(ctx context.Context, doc document.Source) error
}

// Counts tallies one kind's run.
type Counts struct {
	Read    int
	Indexed int
	Failed  int
}

// Report holds per-kind counts in load order.
type Report struct {
	Kinds  []entity.Kind
	Counts map[entity.Kind]Counts
}

// Failed returns the total number of rows that failed to index.
func (r Report) Failed() int {
	n := 0
	for _, c := range r.Counts {
		n += c.Failed
	}
	return n
}

// Loader streams rows from the database into the indexer.
type Loader struct {
	db      *sql.DB
	idx     Indexer
	limiter *rate.Limiter
	dryRun  bool
	logger  *zap.Logger
}

// NewLoader creates a loader. ratePerSecond <= 0 disables throttling.
func NewLoader(db *sql.DB, idx Indexer, ratePerSecond float64, logger *zap.Logger) *Loader {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Loader{
		db:      db,
		idx:     idx,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// WithDryRun reads rows without indexing them.
func (l *Loader) WithDryRun(dry bool) *Loader {
	l.dryRun = dry
	return l
}

// Loadable reports whether kind has a table in the relational source.
func Loadable(kind entity.Kind) bool {
	return kind == entity.Mentor || kind == entity.Student
}

// Run loads every requested kind. A failing row is logged and counted; the run continues.
// The returned error is reserved for query failures and cancellation.
func (l *Loader) Run(ctx context.Context, kinds []entity.Kind) (Report, error) {
	rep := Report{Counts: make(map[entity.Kind]Counts, len(kinds))}
	for _, kind := range kinds {
		if !Loadable(kind) {
			return rep, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
		}
		c, err := l.load(ctx, kind)
		rep.Kinds = append(rep.Kinds, kind)
		rep.Counts[kind] = c
		if err != nil {
			return rep, err
		}
		l.logger.Info("Kind loaded",
			zap.String("kind", string(kind)),
			zap.Int("read", c.Read),
			zap.Int("indexed", c.Indexed),
			zap.Int("failed", c.Failed),
		)
	}
	return rep, nil
}

func (l *Loader) load(ctx context.Context, kind entity.Kind) (Counts, error) {
	var c Counts

	query, scan := mentorQuery, scanMentor
	if kind == entity.Student {
		query, scan = studentQuery, scanStudent
	}

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return c, fmt.Errorf("query %s: %w", kind.Plural(), err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scan(rows)
		if err != nil {
			return c, fmt.Errorf("scan %s: %w", kind.Plural(), err)
		}
		c.Read++

		if l.dryRun {
			continue
		}
		if err := l.limiter.Wait(ctx); err != nil {
			return c, fmt.Errorf("rate limit: %w", err)
		}
		if err := l.idx.Index(ctx, doc); err != nil {
			if errors.Is(err, context.Canceled) {
				return c, err
			}
			c.Failed++
			l.logger.Warn("Row not indexed",
				zap.String("kind", string(kind)),
				zap.Int64("id", doc.EntityID()),
				zap.Error(err),
			)
			continue
		}
		c.Indexed++
	}
	if err := rows.Err(); err != nil {
		return c, fmt.Errorf("read %s: %w", kind.Plural(), err)
	}
	return c, nil
}

func scanMentor(rows *sql.Rows) (document.Source, error) {
	var (
		id                                   int64
		name, areas, bio, institution, title sql.NullString
	)
	if err := rows.Scan(&id, &name, &areas, &bio, &institution, &title); err != nil {
		return nil, err
	}
	return document.Mentor{
		ID:            id,
		Name:          name.String,
		Title:         title.String,
		Institution:   institution.String,
		ResearchAreas: document.ParseStringList(areas.String).Join(),
		Bio:           bio.String,
	}, nil
}

func scanStudent(rows *sql.Rows) (document.Source, error) {
	var (
		id                                       int64
		name, interests, bio, institution, major sql.NullString
	)
	if err := rows.Scan(&id, &name, &interests, &bio, &institution, &major); err != nil {
		return nil, err
	}
	return document.Student{
		ID:                id,
		Name:              name.String,
		Major:             major.String,
		Institution:       institution.String,
		ResearchInterests: document.ParseStringList(interests.String).Join(),
		Bio:               bio.String,
	}, nil
}
