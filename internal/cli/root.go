// Package cli contains the auditctl commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/versionaudit/internal/config"
	"github.com/rpattn/versionaudit/internal/db"
	"github.com/rpattn/versionaudit/internal/observability"
	"github.com/rpattn/versionaudit/internal/report"
	"github.com/rpattn/versionaudit/internal/repository"
)

// Version is the auditctl release.
var Version = "0.1.0"

type globalOptions struct {
	configPath string
	logLevel   string
}

// runtime bundles what a command needs once config has been read.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// NewRootCommand builds the auditctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "auditctl",
		Short: "Version audit reports for tracked documents",
		Long: `auditctl reconstructs how tracked documents changed over time.

For every document it prints the reconstructed initial values, one row per
change-log entry, and the current values. Child-table diffs and a flat
field-change log are available as alternative views.

Examples:
  auditctl report --doctype Contact
  auditctl report --doctype Contact --view child_table --child-table phone_nos
  auditctl field-log --doctype Contact --field status
  auditctl seed --file fixtures.yaml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", ".", "Directory containing config.yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logger.level")

	root.AddCommand(
		newReportCommand(opts),
		newChildTablesCommand(opts),
		newFieldLogCommand(opts),
		newMigrateCommand(opts),
		newSeedCommand(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *globalOptions) load() (*runtime, error) {
	cfg, _, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logger.Level = o.logLevel
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger}, nil
}

func (r *runtime) close() {
	_ = r.logger.Sync()
}

func (r *runtime) connect(ctx context.Context) (*db.Connection, error) {
	return db.NewConnection(ctx, r.cfg.Database, r.logger)
}

func (r *runtime) reportService(conn *db.Connection) *report.Service {
	return report.NewService(
		repository.NewSchemaRepository(conn.Pool),
		repository.NewDocumentRepository(conn.Pool),
		repository.NewChangeLogRepository(conn.Pool),
		report.WithLogger(r.logger.Named("report")),
		report.WithWorkers(r.cfg.Report.Workers),
		report.WithMaxDocuments(r.cfg.Report.MaxDocuments),
	)
}
