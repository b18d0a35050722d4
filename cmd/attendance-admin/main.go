package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/app"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/pkg/config"
	"github.com/noah-isme/attendance-api/pkg/database"
	"github.com/noah-isme/attendance-api/pkg/logger"
)

const usage = `usage: attendance-admin <command> [flags]

commands:
  migrate [up|down|status|redo|version]
  import-roster -teacher <id> -file <path> [-course <id>]
  export-roster -teacher <id> [-out <path>]
`

var errUsage = errors.New("invalid usage")

type rosterPort interface {
	Export(ctx context.Context, teacherID string) ([]models.RosterRecord, error)
	Import(ctx context.Context, teacherID string, document []byte, courseID string) (*models.RosterImportResult, error)
}

type commands struct {
	roster  rosterPort
	migrate func(command string, args ...string) error
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	application := app.NewWithDB(cfg, logr, db)
	defer application.Close() //nolint:errcheck

	cmds := &commands{
		roster: application.Services.Roster,
		migrate: func(command string, args ...string) error {
			return database.Migrate(db, command, args...)
		},
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := cmds.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logr.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func (c *commands) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "migrate":
		command := "up"
		if len(args) > 1 {
			command = args[1]
		}
		var extra []string
		if len(args) > 2 {
			extra = args[2:]
		}
		return c.migrate(command, extra...)
	case "import-roster":
		return c.importRoster(ctx, args[1:])
	case "export-roster":
		return c.exportRoster(ctx, args[1:])
	default:
		return errUsage
	}
}

func (c *commands) importRoster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-roster", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	teacherID := fs.String("teacher", "", "owning teacher id")
	path := fs.String("file", "", "roster JSON file")
	courseID := fs.String("course", "", "assign every imported student to this course")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *teacherID == "" || *path == "" {
		return errUsage
	}

	document, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	result, err := c.roster.Import(ctx, *teacherID, document, *courseID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (c *commands) exportRoster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export-roster", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	teacherID := fs.String("teacher", "", "owning teacher id")
	out := fs.String("out", "", "output file, stdout when empty")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *teacherID == "" {
		return errUsage
	}

	records, err := c.roster.Export(ctx, *teacherID)
	if err != nil {
		return err
	}
	w := c.stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
