package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"minutebook/internal/config"
	"minutebook/internal/store"
	"minutebook/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
archive_dir = %q
log_dir = %q

[portal]
base_url = "https://portal.test.invalid"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "archive"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got %q", want, output)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err := runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("MINUTEBOOK_PORTAL_API_KEY", "super-secret")

	out, _, err := runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, "portal.test.invalid")
	if strings.Contains(out, "super-secret") {
		t.Fatalf("expected API key to be redacted, got %q", out)
	}
	requireContains(t, out, "(set)")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No meetings archived.")

	seedMeeting(t, env, "2024-06-11-cc", "City Council")

	out, _, err = runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status after seed: %v", err)
	}
	requireContains(t, out, "2024-06-11-cc")
	requireContains(t, out, "City Council")
	requireContains(t, out, string(store.StateDiscovered))

	out, _, err = runCLI(t, env, "status", "--state", "embedded")
	if err != nil {
		t.Fatalf("status --state: %v", err)
	}
	requireContains(t, out, "No meetings archived.")

	if _, _, err := runCLI(t, env, "status", "--state", "bogus"); err == nil {
		t.Fatal("expected unknown state to fail")
	}
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	seedMeeting(t, env, "2024-06-11-pb", "Planning Board")

	out, _, err := runCLI(t, env, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	requireContains(t, out, `"2024-06-11-pb"`)
	requireContains(t, out, `"Planning Board"`)
}

func TestRunRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "run", "--update", "--meeting", "2024-06-11-cc")
	if err == nil {
		t.Fatal("expected --update and --meeting to be mutually exclusive")
	}
}

func seedMeeting(t *testing.T, env *cliTestEnv, portalID, body string) {
	t.Helper()

	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	testsupport.NewMeeting(t, st, portalID, body, time.Date(2024, 6, 11, 19, 0, 0, 0, time.UTC))
}
