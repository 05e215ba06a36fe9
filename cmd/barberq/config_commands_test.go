package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Barbers: junior, yago")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	requireContains(t, err.Error(), "--overwrite")

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowRedactsTokens(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, "********")
	if strings.Contains(out, env.backend.Token()) {
		t.Fatalf("token leaked into output:\n%s", out)
	}
}

func TestAPIURLFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"--api-url", "ftp://nowhere", "config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected an invalid --api-url to fail validation")
	}
	requireContains(t, err.Error(), "api.base_url")
}

func TestLogsShowsCommandLog(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("junior", "Ana")

	if _, _, err := runCLI(t, []string{"join", "Bia", "--barber", "junior"}, env.configPath); err != nil {
		t.Fatalf("join: %v", err)
	}
	out, _, err := runCLI(t, []string{"logs", "-n", "20"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "joined queue")
}
