package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recomputeUserID string

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild one user's entitlement summary from stored rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.reconciler.Recompute(cmd.Context(), recomputeUserID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user=%s tier=%s is_pro=%t lifetime=%t\n",
			summary.UserID, summary.Tier, summary.IsPro, summary.HasLifetime)
		return nil
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeUserID, "user", "", "user id to recompute")
	_ = recomputeCmd.MarkFlagRequired("user")
}
