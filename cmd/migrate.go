package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply property store schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		n, err := st.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "count properties")
		}
		zap.L().Info("migrations applied", zap.String("driver", cfg.Store.Driver), zap.Int("properties", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
