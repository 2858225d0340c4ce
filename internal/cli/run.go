package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/k8sproject/internal/process"
)

func newRunCommand() *cobra.Command {
	var stopTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a test command inside the project",
		Long: "Ensure the project exists, run the command with " + EnvNamespace + " exported and delete " +
			"the project afterwards if this run created it. The project is also deleted on SIGINT " +
			"and SIGTERM. The exit code is the command's.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			mgr, release, err := rt.initManager(ctx, true)
			if err != nil {
				return err
			}
			defer release()

			if err := mgr.EnsureProject(ctx); err != nil {
				return err
			}

			env := append(rt.cfg.Environ(), EnvNamespace+"="+mgr.Namespace())
			if tok, err := mgr.Token(); err == nil && tok != "" {
				env = append(env, EnvToken+"="+tok)
			}
			child := process.NewChild(args, env, process.Stdio{
				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
				Err: cmd.ErrOrStderr(),
			}, rt.log)
			if err := child.Start(); err != nil {
				return err
			}
			mgr.RegisterTermination("stop-child", func(context.Context) {
				if err := child.Stop(stopTimeout); err != nil {
					rt.log.Warn("stop child failed", "error", err)
				}
			})

			code, err := child.Wait()
			if err != nil {
				return err
			}
			rt.log.Debug("child exited", "code", code, "namespace", mgr.Namespace())
			if code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&stopTimeout, "stop-timeout", process.DefaultStopTimeout,
		"How long to wait for the command to exit after SIGTERM")
	return cmd
}
