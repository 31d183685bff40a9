package offlinecache

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPrecacheManifest lists the application-shell assets guaranteed to be
// available offline after a successful install.
var DefaultPrecacheManifest = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"/icon-192.png",
	"/icon-512.png",
}

// DefaultNetworkFirstHosts lists external hosts whose resources change
// independently of app deployments and are therefore served network-first.
var DefaultNetworkFirstHosts = []string{
	"fonts.googleapis.com",
	"fonts.gstatic.com",
}

// FileConfig is the on-disk configuration of the agent.
type FileConfig struct {
	Port              int            `yaml:"port"`
	Origin            string         `yaml:"origin"`
	OriginHost        string         `yaml:"originHost"`
	Generation        string         `yaml:"generation"`
	Precache          []string       `yaml:"precache"`
	NetworkFirstHosts []string       `yaml:"networkFirstHosts"`
	DeferActivation   bool           `yaml:"deferActivation"`
	Provider          ProviderConfig `yaml:"provider"`
}

// ProviderConfig selects and configures the store backend.
type ProviderConfig struct {
	// Type is one of "memory", "sqlite", "bigcache" or "redis".
	Type string `yaml:"type"`
	// File is the sqlite db file name; empty means in-memory.
	File string `yaml:"file"`
	// RedisAddr is the address of the redis server for the redis backend.
	RedisAddr string `yaml:"redisAddr"`
}

func LoadConfig(filename string) (FileConfig, error) {
	var config FileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
