package k8sproject

import "github.com/giantswarm/k8sproject/internal/core"

// managerConfig holds configuration for a Manager. This unexported type wraps
// core.ManagerConfig via embedding, keeping internal/core types out of the
// public API signature while avoiding field-by-field duplication.
type managerConfig struct {
	core.ManagerConfig
}

// toCoreConfig returns the embedded core.ManagerConfig with the values that
// depend on other options filled in.
func (c managerConfig) toCoreConfig() core.ManagerConfig {
	out := c.ManagerConfig
	if out.Run.MasterURL == "" && out.RestConfig != nil {
		out.Run.MasterURL = out.RestConfig.Host
	}
	if out.Run.Namespace == "" {
		out.Run.Namespace = generateNamespace()
	}
	return out
}
