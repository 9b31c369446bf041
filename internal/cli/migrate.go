package cli

import (
	"github.com/spf13/cobra"

	"github.com/rpattn/versionaudit/internal/db"
)

func newMigrateCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.load()
			if err != nil {
				return err
			}
			defer rt.close()
			return db.RunMigrations(rt.cfg.Database, rt.logger)
		},
	}
}
