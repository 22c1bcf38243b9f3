package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newGrantTokensCmd() *cobra.Command {
	var (
		userID uint
		count  int
	)

	cmd := &cobra.Command{
		Use:   "grant-tokens",
		Short: "Give a user streak redemption tokens",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return errors.New("--user is required")
			}
			if count < 1 {
				return errors.New("--count must be positive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			streak, err := newEngine(cfg, db).GrantTokens(cmd.Context(), userID, count)
			if err != nil {
				return fmt.Errorf("grant tokens to user %d: %w", userID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d now has %d redemption token(s)\n", userID, streak.RedemptionTokens)
			return nil
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "user ID")
	cmd.Flags().IntVar(&count, "count", 1, "number of tokens to grant")
	return cmd
}
