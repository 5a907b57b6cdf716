// Command migrate manages the sync database schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/logger"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/migration"
	"github.com/alexthecreator0001/woowms-sub001/migrations"
)

const usage = `Usage: migrate [-path dir] [-log-level level] <command> [args]

Schema commands (connect using WOOWMS_DATABASE_* settings):
  up                    apply all pending migrations
  down                  roll back every migration
  step <n>              apply n migrations, negative n rolls back
  goto <version>        migrate to version
  version               print the applied version
  force <version>       mark version applied, clearing a dirty state
  drop -confirm         drop every table

File commands:
  create <name> [desc]  write the next numbered up/down pair (needs -path)
  list                  list migrations

Without -path the migrations built into the binary are used.
`

// schemaCommand runs against a connected migrator
type schemaCommand func(m *migration.Migrator, args []string, log *zap.Logger) error

var schemaCommands = map[string]schemaCommand{
	"up":   func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() },
	"down": func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() },
	"step": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := intArg(args, "step count")
		if err != nil {
			return err
		}
		return m.Steps(n)
	},
	"goto": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		if v < 0 {
			return fmt.Errorf("version must not be negative, got %d", v)
		}
		return m.GoTo(uint(v))
	},
	"force": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := intArg(args, "version")
		if err != nil {
			return err
		}
		return m.Force(v)
	},
	"version": func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Applied migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	},
	"drop": func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return errors.New("drop needs -confirm")
		}
		return m.Drop()
	},
}

func main() {
	dir := flag.String("path", "", "migrations directory, default is the embedded set")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(*dir, flag.Arg(0), flag.Args()[1:], log); err != nil {
		log.Error("Migration command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(dir, command string, args []string, log *zap.Logger) error {
	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}

	switch command {
	case "create":
		return create(dir, args, log)
	case "list":
		names, err := migration.ListMigrations(source)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	cmd, ok := schemaCommands[command]
	if !ok {
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, source, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return cmd(m, args, log)
}

func create(dir string, args []string, log *zap.Logger) error {
	if dir == "" {
		return errors.New("create needs -path pointing at the migrations directory")
	}
	if len(args) == 0 {
		return errors.New("create needs a migration name")
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
	return nil
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s required", what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[0])
	}
	return n, nil
}
