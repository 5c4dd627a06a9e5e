package preflight

import (
	"context"

	"dialer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The Redis check only runs when a bus address is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckBackend(ctx, cfg.Backend.BaseURL, cfg.Backend.APIToken),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
	}
	if cfg.Bus.RedisAddr != "" {
		results = append(results, CheckRedis(ctx, cfg.Bus.RedisAddr, cfg.Bus.RedisPassword, cfg.Bus.RedisDB))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
