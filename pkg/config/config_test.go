package config

import (
	"os"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.NumKeys != 512 {
		t.Fatalf("NumKeys = %d, want 512", cfg.NumKeys)
	}
	if cfg.KeySize != 64 {
		t.Fatalf("KeySize = %d, want 64", cfg.KeySize)
	}
	if cfg.DataSize != 256 {
		t.Fatalf("DataSize = %d, want 256", cfg.DataSize)
	}
	if cfg.CacheCapacity != 32 {
		t.Fatalf("CacheCapacity = %d, want 32", cfg.CacheCapacity)
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load(\"\") = %+v, want %+v", cfg, Default())
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load of missing file = %+v, want %+v", cfg, Default())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := "config_test.yaml"
	contents := "data_file: /tmp/custom.db\nnum_keys: 128\ncache_capacity: 16\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	defer os.Remove(path)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataFile != "/tmp/custom.db" {
		t.Fatalf("DataFile = %q, want %q", cfg.DataFile, "/tmp/custom.db")
	}
	if cfg.NumKeys != 128 {
		t.Fatalf("NumKeys = %d, want 128", cfg.NumKeys)
	}
	if cfg.CacheCapacity != 16 {
		t.Fatalf("CacheCapacity = %d, want 16", cfg.CacheCapacity)
	}
	// Fields absent from the YAML keep their default value.
	if cfg.KeySize != 64 {
		t.Fatalf("KeySize = %d, want default 64", cfg.KeySize)
	}
	if cfg.DataSize != 256 {
		t.Fatalf("DataSize = %d, want default 256", cfg.DataSize)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := "config_test_bad.yaml"
	if err := os.WriteFile(path, []byte("num_keys: [this is not an int"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	defer os.Remove(path)

	if _, err := Load(path); err == nil {
		t.Fatalf("Load of malformed YAML succeeded, want error")
	}
}
