package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/hmprotos/dentalverify/internal/config"
	"github.com/hmprotos/dentalverify/internal/platform/db"
	"github.com/hmprotos/dentalverify/migrations"
)

// openPool connects to the Postgres store named by the config.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver != config.StorePostgres {
		return nil, nil, fmt.Errorf("command needs STORE_DRIVER=%s, got %s", config.StorePostgres, cfg.StoreDriver)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

// schemaCmd builds a subcommand that works on one office schema, picked by
// --office and defaulting to DEFAULT_OFFICE.
func schemaCmd(use, short string, run func(cmd *cobra.Command, m *db.Migrator, schema string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			office, _ := cmd.Flags().GetString("office")
			if office == "" {
				office = cfg.DefaultOffice
			}
			return run(cmd, db.NewMigrator(pool, migrations.FS), db.OfficeSchema(office))
		},
	}
	cmd.Flags().String("office", "", "Office identifier (default DEFAULT_OFFICE)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Run database migrations"}

	cmd.AddCommand(schemaCmd("up", "Apply pending migrations to an office schema",
		func(cmd *cobra.Command, m *db.Migrator, schema string) error {
			count, err := m.Up(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", schema, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: applied %d migration(s)\n", schema, count)
			return nil
		}))

	cmd.AddCommand(schemaCmd("status", "Show migration status of an office schema",
		func(cmd *cobra.Command, m *db.Migrator, schema string) error {
			statuses, err := m.Status(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("status of %s: %w", schema, err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT\n")
			for _, s := range statuses {
				state, at := "pending", ""
				if s.Applied {
					state = "applied"
				}
				if s.AppliedAt != nil {
					at = s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
			}
			return tw.Flush()
		}))

	return cmd
}

func officeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "office", Short: "Manage offices"}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create and migrate an office schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return errors.New("--id is required")
			}
			_, pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.CreateOfficeSchema(cmd.Context(), pool, id, migrations.FS); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "office %s ready in schema %s\n", id, db.OfficeSchema(id))
			return nil
		},
	}
	create.Flags().String("id", "", "Office identifier (alphanumeric)")
	cmd.AddCommand(create)
	return cmd
}
