package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/giantswarm/k8sproject"
)

// Format is an output format selected with --output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates an --output value. Empty selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// WriteObject encodes obj as JSON or YAML.
func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("%s format requires a specific formatter", format)
	}
}

// URLResult is the structured output of the url command.
type URLResult struct {
	URL       string            `json:"url" yaml:"url"`
	Namespace string            `json:"namespace" yaml:"namespace"`
	Labels    map[string]string `json:"labels" yaml:"labels"`
	Port      int               `json:"port" yaml:"port"`
}

// WriteReapTable prints reap results as a table.
func WriteReapTable(w io.Writer, results []k8sproject.ReapResult) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSERVER\tCREATED\tPID\tOUTCOME\tREASON")
	for _, r := range results {
		reason := r.Reason
		if reason == "" {
			reason = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Name, r.Server, r.CreatedAt.UTC().Format(time.RFC3339), r.PID, r.Outcome, reason)
	}
	_ = tw.Flush()
}
