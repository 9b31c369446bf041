package cli

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/versionaudit/internal/repository"
	"github.com/rpattn/versionaudit/internal/seed"
)

func newSeedCommand(global *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load doctypes, documents and change logs from a YAML file",
		Long: `Load doctypes, documents and change logs from a YAML file.

Everything in the file is stored in one transaction. Change entries may give
structured "changed" and "row_changed" lists or a raw "payload" string that is
stored verbatim.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open fixtures: %w", err)
			}
			defer handle.Close()

			fixtures, err := seed.Parse(handle)
			if err != nil {
				return err
			}

			rt, err := global.load()
			if err != nil {
				return err
			}
			defer rt.close()

			conn, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			var summary seed.Summary
			err = conn.WithTx(cmd.Context(), func(tx pgx.Tx) error {
				var applyErr error
				summary, applyErr = seed.Apply(cmd.Context(), fixtures,
					repository.NewSchemaRepository(tx),
					repository.NewDocumentRepository(tx),
					repository.NewChangeLogRepository(tx),
				)
				return applyErr
			})
			if err != nil {
				return err
			}

			rt.logger.Info("fixtures loaded",
				zap.String("file", file),
				zap.Int("doctypes", summary.DocTypes),
				zap.Int("documents", summary.Documents),
				zap.Int("change_logs", summary.ChangeLogs),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Fixtures file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
