package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/fal1winter/mentorsys/internal/bootstrap"
	"github.com/fal1winter/mentorsys/internal/domain"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

func captureRun(got *options) runFunc {
	return func(_ context.Context, _ *cobra.Command, opts options) error {
		*got = opts
		return nil
	}
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd("1.2.3", captureRun(new(options)))

	assert.Equal(t, "reindex", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
	for _, name := range []string{"env", "driver", "dsn", "kinds", "rate", "dry-run", "recreate-index"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %q", name)
	}
}

func TestRootCmd_Defaults(t *testing.T) {
	var got options
	cmd := NewRootCmd("dev", captureRun(&got))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []entity.Kind{entity.Mentor, entity.Student}, got.kinds)
	assert.False(t, got.dryRun)
	assert.False(t, got.recreate)
	assert.False(t, got.rateSet)
	assert.False(t, got.driverSet)
}

func TestRootCmd_Flags(t *testing.T) {
	var got options
	cmd := NewRootCmd("dev", captureRun(&got))
	cmd.SetArgs([]string{
		"--env", "prod",
		"--driver", "sqlite",
		"--dsn", "/tmp/x.db",
		"--kinds", "student",
		"--rate", "2.5",
		"--dry-run",
		"--recreate-index",
	})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, options{
		env:       "prod",
		driver:    "sqlite",
		dsn:       "/tmp/x.db",
		kinds:     []entity.Kind{entity.Student},
		rate:      2.5,
		dryRun:    true,
		recreate:  true,
		rateSet:   true,
		driverSet: true,
	}, got)
}

func TestRootCmd_RunError(t *testing.T) {
	boom := errors.New("boom")
	cmd := NewRootCmd("dev", func(context.Context, *cobra.Command, options) error { return boom })
	cmd.SetArgs([]string{})

	assert.ErrorIs(t, cmd.Execute(), boom)
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	cmd := NewRootCmd("dev", captureRun(new(options)))
	cmd.SetArgs([]string{"mentor"})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds(" student , mentor,student,")
	require.NoError(t, err)
	assert.Equal(t, []entity.Kind{entity.Student, entity.Mentor}, kinds)

	_, err = parseKinds("paper")
	assert.ErrorIs(t, err, bootstrap.ErrUnsupportedKind)

	_, err = parseKinds("scholar")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	_, err = parseKinds(" , ")
	assert.Error(t, err)
}

func TestRun_DryRunAgainstSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mentor_system.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
CREATE TABLE mentors (id INTEGER PRIMARY KEY, name TEXT, research_areas TEXT, bio TEXT, institution TEXT, title TEXT);
CREATE TABLE students (id INTEGER PRIMARY KEY, name TEXT, research_interests TEXT, bio TEXT, current_institution TEXT, major TEXT);
INSERT INTO mentors VALUES (1, 'Li Wei', '["graph learning"]', '', 'Tsinghua', 'Professor');
INSERT INTO mentors VALUES (2, 'Zhang Min', 'vision', '', 'PKU', 'Lecturer');
INSERT INTO students VALUES (7, 'Wang Fang', '["nlp"]', '', 'PKU', 'CS');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var out bytes.Buffer
	cmd := NewRootCmd("dev", run)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env", "local", "--driver", "sqlite", "--dsn", path, "--dry-run"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Equal(t,
		"mentors: read=2 indexed=0 failed=0\nstudents: read=1 indexed=0 failed=0\n",
		out.String())
}
