package validation

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf_summarizer/core"
)

// ConfigCheck re-validates the loaded configuration.
func ConfigCheck(cfg *core.Config) Check {
	return Check{
		Name: "Configuration",
		Run: func(ctx context.Context) Outcome {
			if err := cfg.Validate(); err != nil {
				return Failed("invalid settings", err)
			}
			return Passed(fmt.Sprintf("provider %s, %d model candidates", cfg.Provider, len(cfg.ModelCandidates)))
		},
	}
}

// PolicyFileCheck verifies that the summary policy file is readable.
func PolicyFileCheck(path string) Check {
	return Check{
		Name: "Summary Policy",
		Run: func(ctx context.Context) Outcome {
			if path == "" {
				return Skipped("no policy file configured")
			}
			info, err := os.Stat(path)
			if err != nil {
				return Failed("cannot read policy file", core.ErrPolicyFile(path, err.Error()))
			}
			if info.IsDir() {
				return Failed("policy path is a directory", core.ErrPolicyFile(path, "is a directory"))
			}
			return Passed(path)
		},
	}
}

// LogFileCheck verifies that the log file's directory exists and is writable.
func LogFileCheck(path string) Check {
	return Check{
		Name: "Log File",
		Run: func(ctx context.Context) Outcome {
			if path == "" {
				return Skipped("file logging disabled")
			}
			if err := probeWritable(filepath.Dir(path)); err != nil {
				return Failed("log directory not writable", err)
			}
			return Passed(path)
		},
	}
}

func probeWritable(dir string) error {
	probe, err := os.CreateTemp(dir, ".write-probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// HistoryCheck verifies that the history database directory can be created
// and written.
func HistoryCheck(cfg *core.Config) Check {
	return Check{
		Name: "History Database",
		Run: func(ctx context.Context) Outcome {
			if !cfg.HistoryEnabled || cfg.HistoryDBPath == "" {
				return Skipped("history disabled")
			}
			dir := filepath.Dir(cfg.HistoryDBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Failed("cannot create history directory", err)
			}
			if err := probeWritable(dir); err != nil {
				return Failed("history directory not writable", err)
			}
			return Passed(cfg.HistoryDBPath)
		},
	}
}

// EndpointCheck probes the OpenAI-compatible models endpoint. An unreachable
// server is only a warning: engine initialization reports the failure to the
// user and can be retried once the server is up.
func EndpointCheck(cfg *core.Config, timeout time.Duration) Check {
	return Check{
		Name: "Completion Endpoint",
		Run: func(ctx context.Context) Outcome {
			if cfg.Provider != core.ProviderOpenAI {
				return Skipped("hosted provider " + cfg.Provider)
			}
			return probeModels(ctx, core.GetHTTPClient(cfg, timeout), cfg.TextURL(), cfg.OpenAIAPIKey)
		},
	}
}

func probeModels(ctx context.Context, client *http.Client, baseURL, apiKey string) Outcome {
	url := strings.TrimRight(baseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed("invalid endpoint URL", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Warned("server unreachable", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start).Round(time.Millisecond)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Warned(fmt.Sprintf("credentials rejected (status: %d)", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return Warned(fmt.Sprintf("server responded with status %d", resp.StatusCode), nil)
	}
	return Passed(fmt.Sprintf("%s reachable (latency: %v)", baseURL, latency))
}

// StartupChecks returns the standard preflight list for cfg.
func StartupChecks(cfg *core.Config) []Check {
	return []Check{
		ConfigCheck(cfg),
		PolicyFileCheck(cfg.PolicyFile),
		LogFileCheck(cfg.LogFile),
		HistoryCheck(cfg),
		EndpointCheck(cfg, 5*time.Second),
	}
}
