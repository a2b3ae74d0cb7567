package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration file.
type Config struct {
	Situm  SitumConfig  `toml:"situm"`
	Server ServerConfig `toml:"server"`
	Sim    SimConfig    `toml:"sim"`
}

type SitumConfig struct {
	User      string `toml:"user"`
	APIKey    string `toml:"api_key"`
	APIDomain string `toml:"api_domain"`
}

type ServerConfig struct {
	Address string `toml:"address"`
	DataDir string `toml:"data_dir"`
}

// SimConfig configures the built-in location engine used when no real
// engine is attached.
type SimConfig struct {
	Building  string  `toml:"building"`
	Floor     string  `toml:"floor"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

// LoadConfig reads path, tolerating a missing file so flags and init calls
// can carry the configuration instead.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: ":9090",
			DataDir: ".",
		},
	}
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
