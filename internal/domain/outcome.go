package domain

import (
	"encoding/json"
	"strings"
)

type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// Passed reports whether the status is exactly pass. Every other value,
// including ones a check invents, counts as not passing.
func (s Status) Passed() bool {
	return s == StatusPass
}

// Result is the structured record inside an Outcome.
type Result struct {
	Status Status `yaml:"status" json:"status"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// Outcome is the result of evaluating one check against one server.
// It renders as a single-entry mapping {Key: Result}.
type Outcome struct {
	Key    string
	Result Result
}

func NewOutcome(key string, status Status, output string) Outcome {
	return Outcome{Key: key, Result: Result{Status: status, Output: output}}
}

func Pass(key, output string) Outcome  { return NewOutcome(key, StatusPass, output) }
func Fail(key, output string) Outcome  { return NewOutcome(key, StatusFail, output) }
func Error(key, output string) Outcome { return NewOutcome(key, StatusError, output) }

func (o Outcome) Passed() bool { return o.Result.Status.Passed() }

// TrimmedOutput returns the output without surrounding whitespace, or "-" when empty.
func (o Outcome) TrimmedOutput() string {
	out := strings.TrimSpace(o.Result.Output)
	if out == "" {
		return "-"
	}
	return out
}

func (o Outcome) MarshalYAML() (interface{}, error) {
	return map[string]Result{o.Key: o.Result}, nil
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Result{o.Key: o.Result})
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var m map[string]Result
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	for k, v := range m {
		o.Key, o.Result = k, v
	}
	return nil
}
