package db

import (
	"fmt"
	"io"
	"strconv"
)

// MigrateHelp describes the migrate actions.
const MigrateHelp = `Usage: triggerbot migrate <action> [version]

Actions:
  up          apply all pending migrations
  down        roll back the most recent migration
  status      show current, latest and pending versions
  version N   migrate up or down to version N
  force N     set the version to N without running migrations (dirty recovery)
`

// RunMigrateCommand dispatches a migrate action against database and writes
// progress to out.
func RunMigrateCommand(out io.Writer, database *DB, args []string) error {
	if len(args) < 1 {
		fmt.Fprint(out, MigrateHelp)
		return fmt.Errorf("missing migrate action")
	}

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
		fmt.Fprintln(out, "All migrations applied")
		return printVersion(out, database)

	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Rolled back one migration")
		return printVersion(out, database)

	case "status":
		st, err := database.GetMigrationStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Current version: %d\nLatest version: %d\nPending: %d\nDirty: %v\n",
			st.Version, st.Latest, st.Pending, st.Dirty)
		if st.Dirty {
			fmt.Fprintln(out, "WARNING: a migration failed mid-way; inspect the database, then run: triggerbot migrate force <version>")
		}
		return nil

	case "version":
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		if err := database.MigrateTo(uint(v)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Migrated to version %d\n", v)
		return nil

	case "force":
		v, err := versionArg(args)
		if err != nil {
			return err
		}
		if err := database.MigrateForce(v); err != nil {
			return err
		}
		fmt.Fprintf(out, "Migration version forced to %d\n", v)
		return nil

	case "help":
		fmt.Fprint(out, MigrateHelp)
		return nil

	default:
		fmt.Fprint(out, MigrateHelp)
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

func versionArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a version number", args[0])
	}
	v, err := strconv.Atoi(args[1])
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version number: %s", args[1])
	}
	return v, nil
}

func printVersion(out io.Writer, database *DB) error {
	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	return nil
}
