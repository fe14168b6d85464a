package main

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_LoadConfig_Defaults_When_Nothing_Present(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	cfg, err := LoadConfig(workDir, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := DefaultConfig()
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func Test_LoadConfig_Project_File_Overrides_Defaults(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	write(t, filepath.Join(workDir, ConfigFileName), `{
		// trailing commas and comments are fine, this is hujson
		"max_size": 4096,
	}`)

	cfg, err := LoadConfig(workDir, Config{}, nil, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.MaxSize != 4096 {
		t.Fatalf("MaxSize = %d, want 4096", cfg.MaxSize)
	}

	if cfg.ValueCount != DefaultConfig().ValueCount {
		t.Fatalf("ValueCount = %d, want default %d", cfg.ValueCount, DefaultConfig().ValueCount)
	}
}

func Test_LoadConfig_CLI_Override_Beats_Project_File(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()

	write(t, filepath.Join(workDir, ConfigFileName), `{"max_size": 4096}`)

	cfg, err := LoadConfig(workDir, Config{MaxSize: 9999}, map[string]bool{"max-size": true}, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.MaxSize != 9999 {
		t.Fatalf("MaxSize = %d, want 9999 (CLI override)", cfg.MaxSize)
	}
}

func Test_LoadConfig_Global_File_Beats_Defaults_But_Not_Project(t *testing.T) {
	t.Parallel()

	globalDir := t.TempDir()
	write(t, filepath.Join(globalDir, "cachekitctl", "config.json"), `{"value_count": 3}`)

	workDir := t.TempDir()
	write(t, filepath.Join(workDir, ConfigFileName), `{"value_count": 7}`)

	env := []string{"XDG_CONFIG_HOME=" + globalDir}

	cfg, err := LoadConfig(workDir, Config{}, nil, env)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ValueCount != 7 {
		t.Fatalf("ValueCount = %d, want 7 (project beats global)", cfg.ValueCount)
	}
}

func Test_LoadConfig_Rejects_Non_Positive_Values(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	write(t, filepath.Join(workDir, ConfigFileName), `{"max_size": 0, "value_count": -1}`)

	if _, err := LoadConfig(workDir, Config{}, nil, nil); err == nil {
		t.Fatal("LoadConfig: want error for non-positive value_count")
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
