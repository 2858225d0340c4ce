package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/valyala/fasttemplate"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/giantswarm/k8sproject"
)

// Environment variables read on top of the config file.
const (
	EnvNamespace  = "NAMESPACE"
	EnvMasterURL  = "KUBERNETES_MASTER"
	EnvUsername   = "OPENSHIFT_USERNAME"
	EnvPassword   = "OPENSHIFT_PASSWORD"
	EnvToken      = "OPENSHIFT_TOKEN"
	EnvCleanup    = "CLEANUP"
	EnvConfigPath = "K8SPROJECT_CONFIG"
)

// Settings is the CLI configuration. Durations are Go duration strings.
type Settings struct {
	Namespace             string `yaml:"namespace,omitempty"`
	MasterURL             string `yaml:"master,omitempty"`
	Username              string `yaml:"username,omitempty"`
	Password              string `yaml:"password,omitempty"`
	Token                 string `yaml:"token,omitempty"`
	Cleanup               *bool  `yaml:"cleanup,omitempty"`
	Backend               string `yaml:"backend,omitempty"`
	Description           string `yaml:"description,omitempty"`
	InsecureSkipTLSVerify bool   `yaml:"insecure-skip-tls-verify,omitempty"`
	CAFile                string `yaml:"ca-file,omitempty"`
	Ledger                string `yaml:"ledger,omitempty"`
	RequestTimeout        string `yaml:"request-timeout,omitempty"`
	CleanupTimeout        string `yaml:"cleanup-timeout,omitempty"`
	RemediationTemplate   string `yaml:"remediation-template,omitempty"`
}

// LoadSettings reads path. A missing file yields empty settings unless
// required is set.
func LoadSettings(path string, required bool) (Settings, error) {
	var s Settings
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return s, nil
		}
		return s, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.DisallowUnknownField()); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides settings with the non-empty environment variables
// returned by lookup.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvNamespace, &s.Namespace)
	str(EnvMasterURL, &s.MasterURL)
	str(EnvUsername, &s.Username)
	str(EnvPassword, &s.Password)
	str(EnvToken, &s.Token)

	if v, ok := lookup(EnvCleanup); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvCleanup, v, err)
		}
		s.Cleanup = &b
	}
	return nil
}

// Validate reports every invalid setting.
func (s Settings) Validate() error {
	var errs []error
	if s.MasterURL == "" {
		errs = append(errs, fmt.Errorf("master URL is required (config key master or %s)", EnvMasterURL))
	} else if u, err := url.Parse(s.MasterURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("master URL must be absolute, got %q", s.MasterURL))
	}
	if s.Namespace != "" {
		if msgs := validation.IsDNS1123Label(s.Namespace); len(msgs) > 0 {
			errs = append(errs, fmt.Errorf("invalid namespace %q: %s", s.Namespace, strings.Join(msgs, "; ")))
		}
	}
	if _, err := k8sproject.ParseBackend(s.Backend); err != nil {
		errs = append(errs, err)
	}
	if s.RemediationTemplate != "" {
		if _, err := fasttemplate.NewTemplate(s.RemediationTemplate, "{{", "}}"); err != nil {
			errs = append(errs, fmt.Errorf("invalid remediation-template: %w", err))
		}
	}
	if _, err := parsePositive("request-timeout", s.RequestTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := parsePositive("cleanup-timeout", s.CleanupTimeout); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Options converts validated settings to manager options.
func (s Settings) Options() []k8sproject.ManagerOption {
	opts := []k8sproject.ManagerOption{k8sproject.WithMasterURL(s.MasterURL)}

	if s.Namespace != "" {
		opts = append(opts, k8sproject.WithNamespace(s.Namespace))
	}
	if s.Username != "" {
		opts = append(opts, k8sproject.WithCredentials(s.Username, s.Password))
	}
	if s.Token != "" {
		opts = append(opts, k8sproject.WithToken(s.Token))
	}
	if s.Cleanup != nil {
		opts = append(opts, k8sproject.WithCleanup(*s.Cleanup))
	}
	if b, err := k8sproject.ParseBackend(s.Backend); err == nil {
		opts = append(opts, k8sproject.WithBackend(b))
	}
	if s.Description != "" {
		opts = append(opts, k8sproject.WithDescription(s.Description))
	}
	if s.InsecureSkipTLSVerify {
		opts = append(opts, k8sproject.WithInsecureSkipTLSVerify(true))
	}
	if s.CAFile != "" {
		opts = append(opts, k8sproject.WithCAFile(s.CAFile))
	}
	if s.Ledger != "" {
		opts = append(opts, k8sproject.WithLedgerPath(s.Ledger))
	}
	if d, _ := parsePositive("request-timeout", s.RequestTimeout); d > 0 {
		opts = append(opts, k8sproject.WithRequestTimeout(d))
	}
	if d, _ := parsePositive("cleanup-timeout", s.CleanupTimeout); d > 0 {
		opts = append(opts, k8sproject.WithCleanupTimeout(d))
	}
	if s.RemediationTemplate != "" {
		opts = append(opts, k8sproject.WithRemediationTemplate(s.RemediationTemplate))
	}
	return opts
}

// parsePositive parses an optional duration. Empty yields 0.
func parsePositive(name, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0, got %s", name, v)
	}
	return d, nil
}
