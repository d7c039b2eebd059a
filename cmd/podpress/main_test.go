package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podpress/internal/config"
	"podpress/internal/quota"
	"podpress/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	for _, key := range []string{
		"ANTHROPIC_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY",
		"WORDPRESS_URL", "WORDPRESS_USERNAME", "WORDPRESS_PASSWORD",
		"HF_TOKEN", "PODPRESS_API_TOKEN",
	} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\nlog_dir = %q\nwork_dir = %q\n\n"+
			"[generation]\napi_key = %q\n\n"+
			"[limits]\ndaily_limit = %d\nstore = %q\n\n"+
			"[logging]\nlevel = \"error\"\n",
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.WorkDir,
		cfg.Generation.APIKey,
		cfg.Limits.DailyLimit,
		cfg.Limits.Store,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[limits]")
	requireContains(t, out, "********")
	if strings.Contains(out, `api_key = "test"`) {
		t.Fatalf("expected api key to be masked:\n%s", out)
	}
}

func TestQuotaCommandReportsUsage(t *testing.T) {
	env := setupCLITestEnv(t)
	ledger := testsupport.MustOpenLedger(t, env.cfg, nil)
	testsupport.Consume(t, ledger, "198.51.100.7", 2)

	out, _, err := runCLI(t, []string{"quota", "--json", "--client", "198.51.100.7"}, env.configPath)
	if err != nil {
		t.Fatalf("quota --json: %v", err)
	}
	var report quotaReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode quota report: %v\n%s", err, out)
	}
	if report.Usage.Used != 2 || report.Usage.ClientUsed != 2 || report.Usage.Remaining != 3 {
		t.Fatalf("unexpected usage: %+v", report.Usage)
	}
	if day := report.History[report.Usage.Day]; day.Total != 2 {
		t.Fatalf("expected today's history total 2, got %+v", report.History)
	}

	out, _, err = runCLI(t, []string{"quota"}, env.configPath)
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	requireContains(t, out, "2/5 used, 3 remaining")
	requireContains(t, out, "198.51.100.7=2")
}

func TestHistoryRowsOrdering(t *testing.T) {
	rows := historyRows(map[string]quota.Day{
		"2024-05-01": {Total: 1, Clients: map[string]int{"a": 1}},
		"2024-05-03": {Total: 3, Clients: map[string]int{"b": 1, "c": 2}},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "2024-05-03" || rows[0][2] != "c=2 b=1" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
}

func TestProcessRefusedWhenQuotaExhausted(t *testing.T) {
	env := setupCLITestEnv(t)
	ledger := testsupport.MustOpenLedger(t, env.cfg, nil)
	testsupport.Consume(t, ledger, "cli", 5)

	_, _, err := runCLI(t, []string{"process", "https://cdn.example.com/episode.mp3"}, env.configPath)
	if err == nil {
		t.Fatal("expected process to be refused")
	}
	requireContains(t, err.Error(), "daily limit of 5 runs reached")

	usage, uerr := ledger.UsageInfo(t.Context(), "cli")
	if uerr != nil {
		t.Fatalf("UsageInfo: %v", uerr)
	}
	if usage.Used != 5 {
		t.Fatalf("refused run must not be charged, used=%d", usage.Used)
	}
}

func TestProcessRejectsBadURLWithoutCharging(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"process", "ftp://example.com/a.mp3"}, env.configPath); err == nil {
		t.Fatal("expected invalid url error")
	}
	ledger := testsupport.MustOpenLedger(t, env.cfg, nil)
	usage, err := ledger.UsageInfo(t.Context(), "")
	if err != nil {
		t.Fatalf("UsageInfo: %v", err)
	}
	if usage.Used != 0 {
		t.Fatalf("expected no charge, used=%d", usage.Used)
	}
}

func TestDoctorWithStubbedBinaries(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "stub 1.0")
	requireContains(t, out, "WordPress configured: no")
}

func TestDoctorReportsMissingBinaries(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("PATH", t.TempDir())

	_, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err == nil {
		t.Fatal("expected doctor to fail without ffmpeg and uvx")
	}
	requireContains(t, err.Error(), "FFmpeg")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications disabled")
}

func TestWordPressVerifyRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"wordpress", "verify"}, env.configPath)
	if err == nil {
		t.Fatal("expected missing credentials error")
	}
	requireContains(t, err.Error(), "wordpress url, username and password are required")
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()

	overrides, err := loadSettingsFile("")
	if err != nil || overrides != nil {
		t.Fatalf("expected nil overrides for empty path, got %v, %v", overrides, err)
	}

	path := filepath.Join(dir, "settings.yaml")
	yamlBody := "article:\n  min_characters: 3000\n  custom_style: casual\nwordpress:\n  status: publish\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	overrides, err = loadSettingsFile(path)
	if err != nil {
		t.Fatalf("loadSettingsFile: %v", err)
	}

	cfg := config.Default()
	merged, err := cfg.WithOverrides(overrides)
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if merged.Article.MinCharacters != 3000 || merged.Article.CustomStyle != "casual" {
		t.Fatalf("unexpected article settings: %+v", merged.Article)
	}
	if merged.WordPress.Status != config.StatusPublish {
		t.Fatalf("expected publish status, got %q", merged.WordPress.Status)
	}

	jsonPath := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(jsonPath, []byte(`{"generation": {"max_tokens": 1200}}`), 0o644); err != nil {
		t.Fatalf("write json settings: %v", err)
	}
	overrides, err = loadSettingsFile(jsonPath)
	if err != nil {
		t.Fatalf("loadSettingsFile json: %v", err)
	}
	merged, err = cfg.WithOverrides(overrides)
	if err != nil {
		t.Fatalf("WithOverrides json: %v", err)
	}
	if merged.Generation.MaxTokens != 1200 {
		t.Fatalf("expected max tokens 1200, got %d", merged.Generation.MaxTokens)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("article: [unterminated"), 0o644); err != nil {
		t.Fatalf("write bad settings: %v", err)
	}
	if _, err := loadSettingsFile(bad); err == nil {
		t.Fatal("expected parse error")
	}
}
