// Command import-legacy copies the data directory of the original JSON-file
// deployment into a configured record store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moviemania/internal/auth"
	"moviemania/internal/config"
	"moviemania/internal/legacy"
	xglog "moviemania/internal/log"
	"moviemania/internal/store"
)

type options struct {
	source     string
	backend    string
	dataDir    string
	sqlitePath string
	badgerDir  string
	bcryptCost int
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import a legacy MovieMania data directory",
		Long: "Reads movies.json, series.json, admins.json and sessions.json from --source " +
			"and inserts every record into the selected backend. Existing keys are skipped, " +
			"plaintext admin passwords are hashed and series get their default fields.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "./legacy-data", "legacy data directory")
	f.StringVar(&opts.backend, "backend", config.BackendSQLite, "target backend: file, sqlite or badger")
	f.StringVar(&opts.dataDir, "data-dir", "./data", "target directory for the file backend")
	f.StringVar(&opts.sqlitePath, "sqlite-path", "./data/moviemania.db", "target database for the sqlite backend")
	f.StringVar(&opts.badgerDir, "badger-dir", "./data/badger", "target directory for the badger backend")
	f.IntVar(&opts.bcryptCost, "bcrypt-cost", 12, "bcrypt cost for hashed legacy passwords")
	f.BoolVar(&opts.dryRun, "dry-run", false, "load and count the legacy records without writing")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	logger := xglog.WithComponent("import-legacy")

	ds, err := legacy.LoadDir(opts.source)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.source, err)
	}
	logger.Info().
		Int("movies", len(ds.Movies)).
		Int("series", len(ds.Series)).
		Int("admins", len(ds.Admins)).
		Int("sessions", len(ds.Sessions)).
		Msg("legacy data loaded")
	if opts.dryRun {
		return nil
	}

	st, err := store.Open(ctx, config.StorageConfig{
		Backend:    opts.backend,
		DataDir:    opts.dataDir,
		SQLitePath: opts.sqlitePath,
		BadgerDir:  opts.badgerDir,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := legacy.Import(ctx, st, ds, auth.Hasher{Cost: opts.bcryptCost})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %9s %8s %8s\n", "collection", "inserted", "skipped", "invalid")
	for _, c := range store.Collections {
		fmt.Fprintf(out, "%-10s %9d %8d %8d\n", c, rep.Inserted[c], rep.Skipped[c], rep.Invalid[c])
	}
	return nil
}

func main() {
	xglog.Configure(xglog.Config{Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
