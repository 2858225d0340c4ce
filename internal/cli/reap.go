package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/k8sproject"
)

// DefaultReapAge is the default --older-than of the reap command.
const DefaultReapAge = time.Hour

func newReapCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Delete projects left behind by killed runs",
		Long: "Delete projects recorded in the ledger that are older than --older-than and " +
			"whose run is no longer alive. Requires --ledger or the ledger config key.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if rt.settings.Ledger == "" {
				return errors.New("reap requires a ledger (--ledger or config key ledger)")
			}
			if olderThan < 0 {
				return fmt.Errorf("--older-than must not be negative, got %s", olderThan)
			}

			ctx := cmd.Context()
			mgr, release, err := rt.initManager(ctx, false)
			if err != nil {
				return err
			}
			defer release()

			results, err := mgr.Reap(ctx, olderThan)
			if err != nil {
				return err
			}

			if f := rt.format(); f != FormatText {
				if results == nil {
					results = []k8sproject.ReapResult{}
				}
				if err := WriteObject(cmd.OutOrStdout(), f, results); err != nil {
					return err
				}
			} else {
				WriteReapTable(cmd.OutOrStdout(), results)
			}

			for _, r := range results {
				if r.Outcome == k8sproject.ReapFailed {
					return fmt.Errorf("failed to reap project %s", r.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", DefaultReapAge, "Only reap projects older than this")
	return cmd
}
