package cli

import (
	"context"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/osvaldoandrade/docprov/internal/platform"
	"github.com/spf13/cobra"
)

type RootOptions struct {
	ConfigPath  string
	URI         string
	Database    string
	Store       string
	Timeout     time.Duration
	JSONOutput  bool
	LogLevel    string
	LogFormat   string
	LogFile     string
	Journal     string
	JournalFast bool
	MetricsFile string
	NoColor     bool

	cfg       platform.Config
	logCloser io.Closer
}

// configBindings maps config keys to the flags that override them.
var configBindings = map[string]string{
	"mongodb.uri":           "uri",
	"mongodb.database":      "database",
	"store":                 "store",
	"timeout":               "timeout",
	"log.level":             "log-level",
	"log.format":            "log-format",
	"log.file":              "log-file",
	"journal.path":          "journal",
	"journal.fast":          "journal-fast",
	"metrics.file":          "metrics-file",
	"provision.on_conflict": "on-conflict",
}

func newRootCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docprov",
		Short:         "Provision document-store collections, validators and indexes from catalogs",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          usageArgs(cobra.NoArgs),
		RunE:          runHelp,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := platform.LoadConfig(opts.ConfigPath, cmd.Flags(), configBindings)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			if opts.NoColor {
				color.NoColor = true
			}

			out, closer := platform.LogOutput(cmd.ErrOrStderr(), cfg.FileSink())
			if _, err := platform.ConfigureLogger(cfg.Log.Level, cfg.Log.Format, out); err != nil {
				_ = closer.Close()
				return err
			}
			opts.logCloser = closer
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to a config file (default ./docprov.yaml when present)")
	flags.StringVar(&opts.URI, "uri", "", "MongoDB connection string (default mongodb://localhost:27017)")
	flags.StringVar(&opts.Database, "database", "", "Database for catalog entries that do not name one (default shop)")
	flags.StringVar(&opts.Store, "store", "", "Store backend (mongo, memory)")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "Overall deadline for store operations (default 30s)")
	flags.BoolVar(&opts.JSONOutput, "json", false, "Emit JSON output")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "Log format (text, json)")
	flags.StringVar(&opts.LogFile, "log-file", "", "Also write logs to this file, rotated")
	flags.StringVar(&opts.Journal, "journal", "", "SQLite file recording provisioning runs")
	flags.BoolVar(&opts.JournalFast, "journal-fast", false, "Open the journal in WAL mode with relaxed syncs")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after apply")
	flags.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	cmd.AddCommand(
		newApplyCmd(opts),
		newPlanCmd(opts),
		newVerifyCmd(opts),
		newCatalogCmd(opts),
		newHistoryCmd(opts),
	)

	return cmd
}

// context bounds a command by the configured timeout.
func (o *RootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, o.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (o *RootOptions) closeLog() error {
	if o.logCloser == nil {
		return nil
	}
	err := o.logCloser.Close()
	o.logCloser = nil
	return err
}
