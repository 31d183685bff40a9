package offlinecache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	yml := `
port: 9000
origin: https://app.example.com
generation: offline-cache-v3
precache:
  - /
  - /index.html
  - /manifest.json
networkFirstHosts:
  - fonts.googleapis.com
deferActivation: true
provider:
  type: sqlite
  file: /var/cache/app.db
`
	filename := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(filename, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.Port != 9000 {
		t.Fatalf("port is %d", config.Port)
	}
	if config.Origin != "https://app.example.com" {
		t.Fatalf("origin is %s", config.Origin)
	}
	if config.Generation != "offline-cache-v3" {
		t.Fatalf("generation is %s", config.Generation)
	}
	if len(config.Precache) != 3 || config.Precache[0] != "/" {
		t.Fatalf("precache is %v", config.Precache)
	}
	if len(config.NetworkFirstHosts) != 1 || config.NetworkFirstHosts[0] != "fonts.googleapis.com" {
		t.Fatalf("networkFirstHosts is %v", config.NetworkFirstHosts)
	}
	if !config.DeferActivation {
		t.Fatal("deferActivation not set")
	}
	if config.Provider.Type != "sqlite" || config.Provider.File != "/var/cache/app.db" {
		t.Fatalf("provider is %+v", config.Provider)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
