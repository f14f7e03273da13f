// Command migrate applies and scaffolds the billpay SQL migrations.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/billpay/backend/internal/infrastructure/config"
	"github.com/billpay/backend/internal/infrastructure/logger"
	"github.com/billpay/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type cli struct {
	migrationsPath string
	logLevel       string
	log            *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "BillPay database migration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(logger.Config{Level: c.logLevel, Format: "console", Output: "stdout"})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.log = log
			return c.resolvePath()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.migrationsPath, "path", "", "path to migrations directory (default: database.migrations_path or ./migrations)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  c.withMigrator(func(m *migration.Migrator, _ []string) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE:  c.withMigrator(func(m *migration.Migrator, _ []string) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "steps <n>",
			Short: "Apply n migrations (positive=up, negative=down)",
			Args:  cobra.ExactArgs(1),
			RunE: c.withMigrator(func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: c.withMigrator(func(m *migration.Migrator, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(version))
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version without running migrations (clears a dirty state)",
			Args:  cobra.ExactArgs(1),
			RunE: c.withMigrator(func(m *migration.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(version)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current migration version",
			Args:  cobra.NoArgs,
			RunE: c.withMigrator(func(m *migration.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					c.log.Info("No migrations applied")
					return nil
				}
				c.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether each is applied",
			Args:  cobra.NoArgs,
			RunE: c.withMigrator(func(m *migration.Migrator, _ []string) error {
				statuses, err := m.Status()
				if err != nil {
					return err
				}
				for _, s := range statuses {
					state := "pending"
					switch {
					case s.Dirty:
						state = "dirty"
					case s.Applied:
						state = "applied"
					}
					fmt.Printf("  %06d  %-8s %s\n", s.Version, state, s.Name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Create a new up/down migration pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				description := ""
				if len(args) > 1 {
					description = args[1]
				}
				mig, err := migration.CreateMigration(c.migrationsPath, args[0], description)
				if err != nil {
					return err
				}
				c.log.Info("Migration created",
					zap.Uint("version", mig.Version),
					zap.String("up_file", mig.UpPath),
					zap.String("down_file", mig.DownPath),
				)
				return nil
			},
		},
	)
	return root
}

// resolvePath picks the migrations directory: flag, then config, then ./migrations
func (c *cli) resolvePath() error {
	if c.migrationsPath == "" {
		if cfg, err := config.Load(); err == nil && cfg.Database.MigrationsPath != "" {
			c.migrationsPath = cfg.Database.MigrationsPath
		} else {
			c.migrationsPath = defaultMigrationsPath
		}
	}
	abs, err := filepath.Abs(c.migrationsPath)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	c.migrationsPath = abs
	return nil
}

// withMigrator opens the configured database and runs fn against it
func (c *cli) withMigrator(fn func(*migration.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			c.log.Error("Failed to load configuration", zap.Error(err))
			return err
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			c.log.Error("Failed to open database", zap.Error(err))
			return err
		}
		defer db.Close()
		if err := db.PingContext(cmd.Context()); err != nil {
			c.log.Error("Failed to ping database", zap.Error(err))
			return err
		}

		m, err := migration.New(db, c.migrationsPath, c.log)
		if err != nil {
			c.log.Error("Failed to create migrator", zap.Error(err))
			return err
		}
		defer m.Close()

		c.log.Info("Migration CLI started",
			zap.String("command", cmd.Name()),
			zap.String("migrations_path", c.migrationsPath),
		)
		if err := fn(m, args); err != nil {
			c.log.Error("Migration command failed", zap.String("command", cmd.Name()), zap.Error(err))
			return err
		}
		return nil
	}
}
