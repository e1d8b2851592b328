// Package report renders a run for people and emits its failures to the
// log sink and notifiers.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/fleetcheck/internal/domain"
)

// ServerReport is the display record of one server.
type ServerReport struct {
	Hostname string           `json:"hostname"`
	Summary  string           `json:"summary"`
	Failing  int              `json:"failing"`
	Outcomes []domain.Outcome `json:"outcomes"`
}

// Report holds one entry per server in run order.
type Report []ServerReport

// Format builds the display records. Passing outcomes are included only
// when verbose is set.
func Format(results domain.RunResultSet, verbose bool) Report {
	out := make(Report, 0, len(results))
	for _, sr := range results {
		r := ServerReport{
			Hostname: sr.Server.Hostname,
			Summary:  fmt.Sprintf("%d checks completed", len(sr.Checks)),
			Outcomes: []domain.Outcome{},
		}
		for _, cr := range sr.Checks {
			passed := cr.Outcome.Passed()
			if !passed {
				r.Failing++
			}
			if verbose || !passed {
				r.Outcomes = append(r.Outcomes, cr.Outcome)
			}
		}
		out = append(out, r)
	}
	return out
}

// WriteYAML renders the report as a mapping of hostname to a list whose
// first item is the summary line followed by the included outcomes.
// Keys keep run order; a repeated hostname gets a "#n" suffix.
func WriteYAML(w io.Writer, r Report) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	seen := make(map[string]int, len(r))
	for _, sr := range r {
		key := sr.Hostname
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}
		items := &yaml.Node{Kind: yaml.SequenceNode}
		items.Content = append(items.Content, scalar(sr.Summary))
		for _, o := range sr.Outcomes {
			n := &yaml.Node{}
			if err := n.Encode(o); err != nil {
				return fmt.Errorf("encode %s/%s: %w", sr.Hostname, o.Key, err)
			}
			items.Content = append(items.Content, n)
		}
		doc.Content = append(doc.Content, scalar(key), items)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
