package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/labels"
)

func newURLCommand() *cobra.Command {
	var (
		selector string
		port     int
	)

	cmd := &cobra.Command{
		Use:   "url --selector key=value --port N",
		Short: "Print the API server proxy URL of a workload pod",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			set, err := labels.ConvertSelectorToLabelsMap(selector)
			if err != nil {
				return fmt.Errorf("invalid selector %q: %w", selector, err)
			}
			if len(set) == 0 {
				return errors.New("--selector is required")
			}
			if port <= 0 || port > 65535 {
				return fmt.Errorf("--port must be between 1 and 65535, got %d", port)
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
			h, err := mgr.ManagementHandle(set)
			if err != nil {
				return err
			}
			u, err := h.URL(ctx, port)
			if err != nil {
				return err
			}

			if f := rt.format(); f != FormatText {
				return WriteObject(cmd.OutOrStdout(), f, URLResult{
					URL:       u,
					Namespace: mgr.Namespace(),
					Labels:    h.Labels(),
					Port:      port,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u)
			return err
		},
	}
	cmd.Flags().StringVarP(&selector, "selector", "l", "", "Label selector of the pod, e.g. app=eap")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Container port")
	return cmd
}
