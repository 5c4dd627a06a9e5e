package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dialer/internal/api"
	"dialer/internal/config"
	"dialer/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.FakeBackend
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, businesses ...api.Business) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("DIALER_BASE_URL", "")
	t.Setenv("DIALER_API_TOKEN", "")
	t.Setenv("DIALER_REDIS_ADDR", "")

	fake := testsupport.NewFakeBackend(t, businesses...)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(fake.URL()), testsupport.WithLiveDisabled())

	configPath := filepath.Join(homeDir, ".config", "dialer", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		backend:    fake,
		configPath: configPath,
		baseDir:    testsupport.BaseDir(cfg),
	}
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.configPath, stdin)
	return out, err
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[backend]
base_url = %q
api_token = %q
request_timeout = %d

[paths]
state_dir = %q
log_dir = %q
export_dir = %q

[live]
enabled = %t
reconnect_delay_seconds = %d

[logging]
level = "error"
`,
		cfg.Backend.BaseURL,
		cfg.Backend.APIToken,
		cfg.Backend.RequestTimeout,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.ExportDir,
		cfg.Live.Enabled,
		cfg.Live.ReconnectDelaySeconds,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
