package k8sproject

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/client-go/rest"
)

// ResetForTesting resets the singleton manager state so that the next
// call to NewManager creates a fresh instance. This is exported only
// for use in test packages (package k8sproject_test).
func ResetForTesting() { resetForTesting() }

// ConfigSnapshot holds a copy of the resolved manager configuration for test
// assertions.
type ConfigSnapshot struct {
	Namespace             string
	MasterURL             string
	Username              string
	Password              string
	Cleanup               bool
	Description           string
	Backend               Backend
	Token                 string
	RestConfig            *rest.Config
	InsecureSkipTLSVerify bool
	CAFile                string
	RequestTimeout        time.Duration
	ProjectReadyTimeout   time.Duration
	CleanupTimeout        time.Duration
	RemediationTemplate   string
	LedgerPath            string
	HandleSignals         bool
	MetricsRegisterer     prometheus.Registerer
}

// ApplyOptionsForTesting creates a default managerConfig, applies the given
// options, resolves it and returns a ConfigSnapshot of the result. This
// tests the option closures directly without touching the singleton.
func ApplyOptionsForTesting(opts ...ManagerOption) ConfigSnapshot {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	c := cfg.toCoreConfig()

	return ConfigSnapshot{
		Namespace:             c.Run.Namespace,
		MasterURL:             c.Run.MasterURL,
		Username:              c.Run.Username,
		Password:              c.Run.Password,
		Cleanup:               c.Run.Cleanup,
		Description:           c.Run.Description,
		Backend:               c.Run.Backend,
		Token:                 c.Token,
		RestConfig:            c.RestConfig,
		InsecureSkipTLSVerify: c.InsecureSkipTLSVerify,
		CAFile:                c.CAFile,
		RequestTimeout:        c.RequestTimeout,
		ProjectReadyTimeout:   c.ProjectReadyTimeout,
		CleanupTimeout:        c.CleanupTimeout,
		RemediationTemplate:   c.RemediationTemplate,
		LedgerPath:            c.LedgerPath,
		HandleSignals:         c.HandleSignals,
		MetricsRegisterer:     c.MetricsRegisterer,
	}
}

// NewManagerForTesting builds a non-singleton manager.
func NewManagerForTesting(opts ...ManagerOption) Manager {
	return newManager(opts...)
}
