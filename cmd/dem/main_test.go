package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.yaml")
	data := "ram_size_mb: 256\nextra_bootargs: loglevel=7\nframebuffer_png: out.png\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RAMSizeMB != 256 {
		t.Errorf("ram_size_mb = %d", cfg.RAMSizeMB)
	}
	if cfg.ExtraBootargs != "loglevel=7" {
		t.Errorf("extra_bootargs = %q", cfg.ExtraBootargs)
	}
	if cfg.FramebufferPNG != "out.png" {
		t.Errorf("framebuffer_png = %q", cfg.FramebufferPNG)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != (config{}) {
		t.Errorf("empty path produced %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("missing file accepted")
	}
}
