package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"kmtracker/internal/config"
	"kmtracker/internal/database"
	"kmtracker/internal/logging"
	"kmtracker/internal/render"
	"kmtracker/internal/tracker"
)

// session is the state shared by the commands of one invocation
type session struct {
	out        io.Writer
	configPath string
	verbose    bool
}

// env is handed to a command once the store is open and migrated
type env struct {
	tracker *tracker.Tracker
	console *render.Console
	out     io.Writer
}

func NewRootCommand(out io.Writer) *cobra.Command {
	s := &session{out: out}

	cmd := &cobra.Command{
		Use:           "kmtracker",
		Short:         "Keep track of the kilometers you ride",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logging.NewCLILogger(cmd.ErrOrStderr(), s.verbose))
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.PersistentFlags().StringVarP(&s.configPath, "config", "f", "", "path to config file")
	cmd.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "log progress to stderr")

	cmd.AddCommand(
		newAddCommand(s),
		newAmendCommand(s),
		newAliasCommand(s),
		newLoadGPXCommand(s),
		newListCommand(s),
		newShowCommand(s),
		newStatsCommand(s),
	)
	return cmd
}

// run wraps a command body with opening, migrating and closing the store
func (s *session) run(body func(e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := s.open()
		if err != nil {
			return mapCommandError(err)
		}
		defer db.Close()

		e := &env{
			tracker: tracker.New(db),
			console: render.NewConsole(s.out),
			out:     s.out,
		}
		return mapCommandError(body(e, args))
	}
}

func (s *session) open() (*database.DB, error) {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	path := cfg.DatabasePath
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)
	if created {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}

	applied, err := db.Migrate()
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		slog.Info("Applied migrations", "database", path, "migrations", applied)
	}
	if created {
		fmt.Fprintf(s.out, "created a new DB at %s\n", path)
	}
	return db, nil
}
