package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

const maxBodyBytes = 1 << 20

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPCheck GETs a URL and passes on 2xx/3xx. "{{host}}" in the URL is
// replaced by the server hostname. When JSONPath is set the body must hold
// a JSON value at that path equal to JSONEquals.
type HTTPCheck struct {
	Name       string
	URL        string
	JSONPath   string
	JSONEquals string
	Client     HTTPDoer
}

func NewHTTPCheck(def check.Definition) (check.Runner, error) {
	var spec struct {
		URL        string `yaml:"url"`
		JSONPath   string `yaml:"json_path"`
		JSONEquals string `yaml:"json_equals"`
	}
	if err := def.Decode(&spec); err != nil {
		return nil, err
	}
	if spec.URL == "" {
		return nil, errors.New("http check requires a url")
	}
	return &HTTPCheck{Name: def.Name, URL: spec.URL, JSONPath: spec.JSONPath, JSONEquals: spec.JSONEquals}, nil
}

func (h *HTTPCheck) Run(ctx context.Context, srv domain.Server, opts *check.Options) (domain.Outcome, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: timeoutOf(opts)}
	}
	target := strings.ReplaceAll(h.URL, "{{host}}", srv.Hostname)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.Error(h.Name, err.Error()), nil
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.Fail(h.Name, err.Error()), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return domain.Fail(h.Name, resp.Status), nil
	}
	if h.JSONPath == "" {
		return domain.Pass(h.Name, resp.Status), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Fail(h.Name, "read body: "+err.Error()), nil
	}
	if !gjson.ValidBytes(body) {
		return domain.Fail(h.Name, "response is not valid JSON"), nil
	}
	v := gjson.GetBytes(body, h.JSONPath)
	if !v.Exists() {
		return domain.Fail(h.Name, fmt.Sprintf("%s: path not found", h.JSONPath)), nil
	}
	if v.String() != h.JSONEquals {
		return domain.Fail(h.Name, fmt.Sprintf("%s = %q, want %q", h.JSONPath, v.String(), h.JSONEquals)), nil
	}
	return domain.Pass(h.Name, fmt.Sprintf("%s = %q", h.JSONPath, v.String())), nil
}
