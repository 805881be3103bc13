package cmd

import (
	"fmt"
	"io"
	"os"

	"mergesync/internal/config"
	"mergesync/internal/db"
	"mergesync/internal/logger"
	"mergesync/internal/repository"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries what every command needs once the root command has loaded
// settings.
type app struct {
	v        *viper.Viper
	settings *config.Settings
	debug    bool
	stdout   io.Writer
	stderr   io.Writer
}

func (a *app) log() *zap.Logger {
	return logger.Log
}

// history opens the run history database on first use.
func (a *app) history() (*repository.HistoryRepository, error) {
	if db.DB == nil {
		if err := db.Init(a.settings.DBPath); err != nil {
			return nil, err
		}
	}
	return repository.NewHistoryRepository(db.DB), nil
}

func (a *app) daemonURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", a.settings.DaemonPort, path)
}

// NewRootCmd builds the command tree from the builtin registry.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:           "mergesync",
		Short:         "Sync a directory tree, merging selected files instead of overwriting them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			settings, err := config.Load(a.v)
			if err != nil {
				return fmt.Errorf("%w: %v", errConfigLoad, err)
			}
			a.settings = settings

			if a.debug {
				logger.Init(true)
				return nil
			}
			if err := logger.InitLevel(settings.LogLevel); err != nil {
				logger.Init(false)
				logger.Log.Warn("unknown log level, using info",
					zap.String("level", settings.LogLevel))
			}
			return nil
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitFatal, err: err}
	})

	pf := root.PersistentFlags()
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	pf.String("db-path", "", "history database path")
	pf.Int("port", 0, "daemon API port")
	_ = a.v.BindPFlag("db_path", pf.Lookup("db-path"))
	_ = a.v.BindPFlag("daemon_port", pf.Lookup("port"))

	for _, c := range builtins().build(a) {
		root.AddCommand(c)
	}

	return root
}

// Execute runs the CLI and exits with the mapped status code.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes the CLI with args and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	defer logger.Sync()

	root := NewRootCmd(stdout, stderr)

	expanded, err := expandAliases(args, builtinNames(root))
	if err != nil {
		return report(stderr, err)
	}

	root.SetArgs(expanded)
	if err := root.Execute(); err != nil {
		return report(stderr, err)
	}

	return exitOK
}
