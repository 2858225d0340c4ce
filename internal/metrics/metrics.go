// Package metrics exposes Prometheus counters for project lifecycle events.
// The counters always exist so callers can increment them unconditionally;
// they are only exported when registered with a Registerer.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution results used as the "result" label of URLResolutions.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the k8sproject counters.
type Metrics struct {
	ProjectsCreated prometheus.Counter
	ProjectsDeleted prometheus.Counter
	CleanupFailures prometheus.Counter
	ProjectsReaped  prometheus.Counter
	TokenRefreshes  prometheus.Counter
	URLResolutions  *prometheus.CounterVec
}

// New creates the counters and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ProjectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "k8sproject_projects_created_total",
			Help: "Total number of test projects created by this process",
		}),
		ProjectsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "k8sproject_projects_deleted_total",
			Help: "Total number of test projects deleted during cleanup",
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "k8sproject_cleanup_failures_total",
			Help: "Total number of project deletions that failed during cleanup",
		}),
		ProjectsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "k8sproject_projects_reaped_total",
			Help: "Total number of orphaned projects deleted from the ledger",
		}),
		TokenRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "k8sproject_token_refreshes_total",
			Help: "Total number of expired tokens replaced by the credential guard",
		}),
		URLResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "k8sproject_url_resolutions_total",
			Help: "Total number of management URL resolutions by result",
		}, []string{"result"}),
	}

	if err := m.Register(reg); err != nil {
		return nil, err
	}
	return m, nil
}

// Register exports the counters through reg. A nil reg is a no-op. On
// failure the counters registered so far are unregistered again, so a later
// Register can be retried.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	collectors := m.collectors()
	for idx, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:idx] {
				reg.Unregister(done)
			}
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ProjectsCreated,
		m.ProjectsDeleted,
		m.CleanupFailures,
		m.ProjectsReaped,
		m.TokenRefreshes,
		m.URLResolutions,
	}
}

// Discard returns unregistered counters.
func Discard() *Metrics {
	m, _ := New(nil)
	return m
}
