package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Validate the session and print the current token",
		Long: "Probe the cluster with the configured token, refreshing it when it has expired, " +
			"and print the token in use. Without a token, print the login command for a fresh one.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			mgr, release, err := rt.initManager(ctx, false)
			if err != nil {
				return err
			}
			defer release()

			if err := mgr.EnsureValid(ctx); err != nil {
				return err
			}
			tok, err := mgr.Token()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
}
