package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	config "time-exchange.com/time-exchange/internal/configs"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Resolve stale pending settlements once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		a := newApp(cfg, nil)
		defer a.close()

		report, err := a.reconciler(cfg).RunOnce(context.Background())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "settled=%d rejected=%d failed=%d\n", report.Settled, report.Rejected, report.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
