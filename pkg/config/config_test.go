package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFileFound(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	os.Unsetenv("GDBFLASH")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 1122 {
		t.Errorf("Load() = %+v, want default host/port", cfg)
	}
}

func TestLoadReadsCurrentDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	os.Unsetenv("GDBFLASH")

	contents := "host = 192.168.1.50\nport = 3333\ndevice = stm32f407g\nchunk_size = 512\n"
	if err := os.WriteFile(filepath.Join(dir, "gdbflash.ini"), []byte(contents), 0o644); err != nil {
		t.Fatalf("writing gdbflash.ini: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "192.168.1.50" || cfg.Port != 3333 || cfg.Device != "stm32f407g" || cfg.ChunkSize != 512 {
		t.Errorf("Load() = %+v, want values from gdbflash.ini", cfg)
	}
	if got, want := cfg.Addr(), "192.168.1.50:3333"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}
