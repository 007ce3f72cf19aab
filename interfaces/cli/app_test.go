package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	badgerstore "github.com/dealgrid/freshness/infrastructure/storage/badger"
)

func TestApp_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"version"})
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "freshness version") {
		t.Errorf("version output missing 'freshness version', got: %s", stdout.String())
	}
}

func TestApp_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := New().WithOutput(&stdout, &stderr)

	err := app.ExecuteWithArgs(context.Background(), []string{"--help"})
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	output := stdout.String()
	for _, cmd := range []string{"validate", "stats", "clear", "watch"} {
		if !strings.Contains(output, cmd) {
			t.Errorf("help output missing %q command, got: %s", cmd, output)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "freshness.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApp_Validate(t *testing.T) {
	t.Run("valid configuration", func(t *testing.T) {
		path := writeConfig(t, `
name: marketplace
cache:
  max_age: 10m
retry:
  max_retries: 5
`)

		var stdout, stderr bytes.Buffer
		app := New().WithOutput(&stdout, &stderr)

		if err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", path}); err != nil {
			t.Fatalf("validate command failed: %v", err)
		}

		output := stdout.String()
		if !strings.Contains(output, "Configuration is valid") {
			t.Errorf("validate output missing confirmation, got: %s", output)
		}
		if !strings.Contains(output, "Retry budget: 5") {
			t.Errorf("validate output missing retry budget, got: %s", output)
		}
	})

	t.Run("invalid configuration", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  level: loud\n")

		var stdout, stderr bytes.Buffer
		app := New().WithOutput(&stdout, &stderr)

		if err := app.ExecuteWithArgs(context.Background(), []string{"validate", "-c", path}); err == nil {
			t.Error("validate should fail for an invalid level")
		}
	})

	t.Run("missing config flag", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		app := New().WithOutput(&stdout, &stderr)

		if err := app.ExecuteWithArgs(context.Background(), []string{"validate"}); err == nil {
			t.Error("validate without -c should fail")
		}
	})
}

func seedMirror(t *testing.T, dir string, entries map[string][]byte) {
	t.Helper()

	cfg := badgerstore.DefaultConfig()
	cfg.Dir = dir
	mirror, err := badgerstore.NewMirror(cfg)
	if err != nil {
		t.Fatalf("failed to open mirror: %v", err)
	}
	defer mirror.Close()

	ctx := context.Background()
	for key, value := range entries {
		if err := mirror.Set(ctx, key, value); err != nil {
			t.Fatalf("failed to seed %q: %v", key, err)
		}
	}
}

func TestApp_StatsAndClear(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "cache:\n  mirror_dir: "+dir+"\n")

	seedMirror(t, dir, map[string][]byte{
		"deals/1":   []byte("a"),
		"deals/2":   []byte("b"),
		"profile/1": []byte("c"),
	})

	t.Run("stats counts mirrored entries", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		app := New().WithOutput(&stdout, &stderr)

		if err := app.ExecuteWithArgs(context.Background(), []string{"stats", "-c", path, "--keys"}); err != nil {
			t.Fatalf("stats command failed: %v", err)
		}

		output := stdout.String()
		if !strings.Contains(output, "Mirrored entries: 3") {
			t.Errorf("stats output missing count, got: %s", output)
		}
		if !strings.Contains(output, "deals/1") {
			t.Errorf("stats output missing key listing, got: %s", output)
		}
	})

	t.Run("clear purges a prefix", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		app := New().WithOutput(&stdout, &stderr)

		if err := app.ExecuteWithArgs(context.Background(), []string{"clear", "-c", path, "--prefix", "deals/"}); err != nil {
			t.Fatalf("clear command failed: %v", err)
		}

		stdout.Reset()
		if err := app.ExecuteWithArgs(context.Background(), []string{"stats", "-c", path}); err != nil {
			t.Fatalf("stats command failed: %v", err)
		}
		if !strings.Contains(stdout.String(), "Mirrored entries: 1") {
			t.Errorf("expected 1 surviving entry, got: %s", stdout.String())
		}
	})

	t.Run("clear purges everything", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		app := New().WithOutput(&stdout, &stderr)

		if err := app.ExecuteWithArgs(context.Background(), []string{"clear", "-c", path}); err != nil {
			t.Fatalf("clear command failed: %v", err)
		}

		stdout.Reset()
		if err := app.ExecuteWithArgs(context.Background(), []string{"stats", "-c", path}); err != nil {
			t.Fatalf("stats command failed: %v", err)
		}
		if !strings.Contains(stdout.String(), "Mirrored entries: 0") {
			t.Errorf("expected empty mirror, got: %s", stdout.String())
		}
	})
}
