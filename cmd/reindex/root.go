package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fal1winter/mentorsys/internal/bootstrap"
	"github.com/fal1winter/mentorsys/internal/domain/entity"
)

type options struct {
	env       string
	driver    string
	dsn       string
	kinds     []entity.Kind
	rate      float64
	dryRun    bool
	recreate  bool
	rateSet   bool
	driverSet bool
}

type runFunc func(ctx context.Context, cmd *cobra.Command, opts options) error

// NewRootCmd builds the reindex command. run does the actual work so that tests can stub it.
func NewRootCmd(version string, run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the mentor and student collections from the database",
		Long: `Reads mentors and students from the relational database and indexes every row
into its vector collection. Rows that fail are reported and skipped.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := readOptions(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().String("env", "", "Config environment (defaults to $ENV or local)")
	cmd.Flags().String("driver", "", "Database driver: mysql or sqlite (overrides config)")
	cmd.Flags().String("dsn", "", "Database DSN (overrides config)")
	cmd.Flags().String("kinds", "mentor,student", "Comma-separated kinds to load")
	cmd.Flags().Float64("rate", 0, "Rows indexed per second (overrides config)")
	cmd.Flags().Bool("dry-run", false, "Read rows without indexing")
	cmd.Flags().Bool("recreate-index", false, "Drop and recreate each kind's index before loading")

	return cmd
}

func readOptions(cmd *cobra.Command) (options, error) {
	f := cmd.Flags()
	opts := options{}
	opts.env, _ = f.GetString("env")
	opts.driver, _ = f.GetString("driver")
	opts.dsn, _ = f.GetString("dsn")
	opts.rate, _ = f.GetFloat64("rate")
	opts.dryRun, _ = f.GetBool("dry-run")
	opts.recreate, _ = f.GetBool("recreate-index")
	opts.rateSet = f.Changed("rate")
	opts.driverSet = f.Changed("driver")

	raw, _ := f.GetString("kinds")
	kinds, err := parseKinds(raw)
	if err != nil {
		return options{}, err
	}
	opts.kinds = kinds
	return opts, nil
}

// parseKinds reads a comma-separated kind list, dropping duplicates.
func parseKinds(raw string) ([]entity.Kind, error) {
	var kinds []entity.Kind
	seen := make(map[entity.Kind]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := entity.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("--kinds: %w", err)
		}
		if !bootstrap.Loadable(k) {
			return nil, fmt.Errorf("--kinds: %w: %s", bootstrap.ErrUnsupportedKind, k)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("--kinds: at least one kind is required")
	}
	return kinds, nil
}
