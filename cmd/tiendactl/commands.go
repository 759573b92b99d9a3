package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tienda-be/internal/admin"
	"tienda-be/internal/blob"
	"tienda-be/internal/config"
	"tienda-be/internal/db"
	"tienda-be/internal/logger"
	"tienda-be/internal/metrics"
	"tienda-be/internal/product"

	"github.com/go-extras/cobraflags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Swapped out in tests.
var openDBFunc = db.NewDatabase

const (
	uploadsDirFlag  = "uploads-dir"
	metricsFileFlag = "metrics-file"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "tiendactl",
		Short:        "Maintenance tasks for the tienda backend",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger.Init(config.LoadConfig().AppEnv)
		},
	}

	root.AddCommand(newMigrateCommand())
	root.AddCommand(newBlobsCommand())
	root.AddCommand(newHashPasswordCommand())
	return root
}

func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(cfg *config.Config, database *sql.DB) error {
				if err := db.Migrate(database, cfg.DBDriver); err != nil {
					return err
				}
				return printVersion(cmd, cfg, database)
			})
		},
	})

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all of them unless --steps is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(cfg *config.Config, database *sql.DB) error {
				if err := db.Rollback(database, cfg.DBDriver, steps); err != nil {
					return err
				}
				return printVersion(cmd, cfg, database)
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(cfg *config.Config, database *sql.DB) error {
				return printVersion(cmd, cfg, database)
			})
		},
	})

	return migrateCmd
}

func printVersion(cmd *cobra.Command, cfg *config.Config, database *sql.DB) error {
	v, dirty, err := db.Version(database, cfg.DBDriver)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}

func newBlobsCommand() *cobra.Command {
	blobsCmd := &cobra.Command{
		Use:   "blobs",
		Short: "Manage uploaded product images",
	}

	pruneFlags := map[string]cobraflags.Flag{
		uploadsDirFlag: &cobraflags.StringFlag{
			Name:  uploadsDirFlag,
			Value: "",
			Usage: "Upload directory to prune (defaults to UPLOADS_DIR)",
		},
		metricsFileFlag: &cobraflags.StringFlag{
			Name:  metricsFileFlag,
			Value: "",
			Usage: "Write the prune count to this file for the node_exporter textfile collector",
		},
	}

	var dryRun bool
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete uploaded images no product references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(func(cfg *config.Config, database *sql.DB) error {
				dir := pruneFlags[uploadsDirFlag].GetString()
				if dir == "" {
					dir = cfg.UploadsDir
				}
				return pruneBlobs(cmd, database, pruneOptions{
					dir:         dir,
					prefix:      cfg.UploadsPrefix,
					metricsFile: pruneFlags[metricsFileFlag].GetString(),
					dryRun:      dryRun,
				})
			})
		},
	}
	cobraflags.RegisterMap(pruneCmd, pruneFlags)
	pruneCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphaned images without deleting them")
	blobsCmd.AddCommand(pruneCmd)

	return blobsCmd
}

type pruneOptions struct {
	dir         string
	prefix      string
	metricsFile string
	dryRun      bool
}

func pruneBlobs(cmd *cobra.Command, database *sql.DB, opts pruneOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := blob.NewDiskStore(afero.NewOsFs(), opts.dir, opts.prefix)
	if err != nil {
		return err
	}

	refs, err := product.NewService(product.NewRepository(database)).ImageRefs(ctx)
	if err != nil {
		return err
	}

	orphans, err := store.Prune(ctx, refs, opts.dryRun)
	if err != nil {
		return err
	}

	if opts.metricsFile != "" && !opts.dryRun {
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		m.BlobsPruned(len(orphans))
		if err := prometheus.WriteToTextfile(opts.metricsFile, m.Registry()); err != nil {
			return fmt.Errorf("write metrics file: %w", err)
		}
	}

	verb, summary := "removed", "removed"
	if opts.dryRun {
		verb, summary = "would remove", "found"
	}
	for _, name := range orphans {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d orphaned image(s) %s\n", len(orphans), summary)
	return nil
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for ADMIN_USERS or a credentials file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := strings.TrimSpace(args[0])
			if password == "" {
				return errors.New("password must not be empty")
			}
			hash, err := admin.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func withDB(fn func(cfg *config.Config, database *sql.DB) error) error {
	cfg := config.LoadConfig()

	database, err := openDBFunc(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.L().Warn("failed to close database", zap.Error(err))
		}
	}()

	return fn(cfg, database)
}
