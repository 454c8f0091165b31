package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContextDiff/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// Migrator runs schema migrations against a database URL.
type Migrator struct {
	Up     func(dbURL string) error
	Down   func(dbURL string, steps int) error
	Status func(dbURL string) (uint, bool, error)
	Force  func(dbURL string, version int) error
}

// PostgresMigrator drives the embedded history schema migrations.
var PostgresMigrator = Migrator{
	Up:     postgres.RunMigrations,
	Down:   postgres.RollbackMigration,
	Status: postgres.MigrationStatus,
	Force:  postgres.ForceMigrationVersion,
}

// NewMigrateCmd manages the comparison history schema.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(PostgresMigrator)
}

func newMigrateCmd(m Migrator) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the comparison history database schema",
	}

	dbURL := func(cmd *cobra.Command) (string, error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return "", err
		}
		pg := cliCtx.Config.Postgres
		if pg.Host == "" || pg.Database == "" {
			return "", errors.InvalidParam("postgres.host and postgres.database must be configured")
		}
		return pg.URL(), nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dbURL(cmd)
			if err != nil {
				return err
			}
			if err := m.Up(url); err != nil {
				return err
			}
			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return errors.InvalidParam("--steps must be >= 1")
			}
			url, err := dbURL(cmd)
			if err != nil {
				return err
			}
			if err := m.Down(url, steps); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dbURL(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := m.Status(url)
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationStatus{Version: version, Dirty: dirty})
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark the schema as VERSION without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.InvalidParam("VERSION must be an integer").WithDetail(args[0])
			}
			url, err := dbURL(cmd)
			if err != nil {
				return err
			}
			if err := m.Force(url, version); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", version))
			return nil
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) Text() string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty: fix the failed migration, then run migrate force)\n", s.Version)
	}
	return fmt.Sprintf("version %d\n", s.Version)
}
