package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/k8sproject"
)

// DefaultConfigPath is read when neither --config nor K8SPROJECT_CONFIG is
// set. It may be missing.
const DefaultConfigPath = "k8sproject.yaml"

// ManagerFactory builds the manager for a command. signals requests
// SIGINT/SIGTERM handling.
type ManagerFactory func(s Settings, signals bool) k8sproject.Manager

// Config wires the command tree to its environment.
type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	ErrorWriter  io.Writer
	LookupEnv    func(string) (string, bool)
	Environ      func() []string
	NewManager   ManagerFactory
}

// ExitError carries the exit code of a command run by `k8sproject run`.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

type runtimeState struct {
	cfg          Config
	configPath   string
	outputFormat string
	namespace    string
	masterURL    string
	ledgerPath   string
	verbose      bool
	settings     Settings
	log          *slog.Logger
}

type runtimeKey struct{}

// DefaultConfig returns a Config bound to the process environment.
func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
		ErrorWriter:  os.Stderr,
		LookupEnv:    os.LookupEnv,
		Environ:      os.Environ,
		NewManager:   NewManager,
	}
}

// NewManager is the default ManagerFactory.
//
//nolint:ireturn // Returns the public Manager interface.
func NewManager(s Settings, signals bool) k8sproject.Manager {
	opts := append(s.Options(), k8sproject.WithSignalHandling(signals))
	return k8sproject.NewManager(opts...)
}

// NewRootCommand builds the k8sproject command tree.
func NewRootCommand(cfg Config) *cobra.Command {
	if cfg.LookupEnv == nil {
		cfg.LookupEnv = os.LookupEnv
	}
	if cfg.Environ == nil {
		cfg.Environ = os.Environ
	}
	if cfg.NewManager == nil {
		cfg.NewManager = NewManager
	}
	rt := &runtimeState{cfg: cfg, configPath: cfg.ConfigPath}

	root := &cobra.Command{
		Use:           "k8sproject",
		Short:         "Manage the cluster project of an integration test run",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfg.OutputWriter != nil {
				cmd.SetOut(rt.cfg.OutputWriter)
			}
			if rt.cfg.ErrorWriter != nil {
				cmd.SetErr(rt.cfg.ErrorWriter)
			}
			level := slog.LevelInfo
			if rt.verbose {
				level = slog.LevelDebug
			}
			rt.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
				With("component", "k8sproject")
			k8sproject.SetLogger(rt.log)

			if _, err := ParseFormat(rt.outputFormat); err != nil {
				return err
			}
			return rt.loadSettings()
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath,
		"Path to config file (default $"+EnvConfigPath+" or "+DefaultConfigPath+")")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().StringVarP(&rt.namespace, "namespace", "n", "", "Project name override")
	root.PersistentFlags().StringVar(&rt.masterURL, "master", "", "Cluster API endpoint override")
	root.PersistentFlags().StringVar(&rt.ledgerPath, "ledger", "", "Path of the created-project ledger")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		newRunCommand(),
		newURLCommand(),
		newTokenCommand(),
		newReapCommand(),
	)
	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// loadSettings merges the config file, the environment and the flags, in
// increasing order of precedence.
func (rt *runtimeState) loadSettings() error {
	path, required := rt.configPath, rt.configPath != ""
	if path == "" {
		if v, ok := rt.cfg.LookupEnv(EnvConfigPath); ok && v != "" {
			path, required = v, true
		} else {
			path = DefaultConfigPath
		}
	}

	s, err := LoadSettings(path, required)
	if err != nil {
		return err
	}
	if err := s.ApplyEnv(rt.cfg.LookupEnv); err != nil {
		return err
	}
	if rt.namespace != "" {
		s.Namespace = rt.namespace
	}
	if rt.masterURL != "" {
		s.MasterURL = rt.masterURL
	}
	if rt.ledgerPath != "" {
		s.Ledger = rt.ledgerPath
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	rt.settings = s
	return nil
}

func (rt *runtimeState) format() Format {
	f, _ := ParseFormat(rt.outputFormat)
	return f
}

// initManager builds and initializes the manager. The returned release func
// shuts it down and must always be called.
//
//nolint:ireturn // Returns the public Manager interface.
func (rt *runtimeState) initManager(ctx context.Context, signals bool) (k8sproject.Manager, func(), error) {
	mgr := rt.cfg.NewManager(rt.settings, signals)
	release := func() {
		if err := mgr.Shutdown(); err != nil {
			rt.log.Warn("manager shutdown failed", "error", err)
		}
	}
	if err := mgr.Initialize(ctx); err != nil {
		release()
		return nil, func() {}, err
	}
	return mgr, release, nil
}
