package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/daniacca/fluidnet/internal/fluid"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr               string
	DefaultNetworkID   string
	NetworkFile        string
	SnapshotDir        string
	SnapshotEveryTicks int
	LogLevel           string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment variables.
// Uses a resolver pattern to make it easy to add new configuration options.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	// Define all configuration resolvers
	// To add a new option, just add a new resolver here
	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "FLUIDNET_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "network-id",
			envVarName:  "FLUIDNET_NETWORK_ID",
			defaultVal:  "default",
			description: "default network ID for the initial network config",
			setter:      func(c *ServerConfig, v string) { c.DefaultNetworkID = v },
		},
		{
			flagName:    "network-file",
			envVarName:  "FLUIDNET_NETWORK_FILE",
			defaultVal:  "",
			description: "optional path to a JSON network config file to load at startup",
			setter:      func(c *ServerConfig, v string) { c.NetworkFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "FLUIDNET_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "Directory where network snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "snapshot-every-ticks",
			envVarName:  "FLUIDNET_SNAPSHOT_EVERY_TICKS",
			defaultVal:  "1000",
			description: "How often to write snapshots (in number of ticks); 0 disables periodic snapshots",
			setter: func(c *ServerConfig, v string) {
				// Parse int value, with error handling
				if val, err := strconv.Atoi(v); err == nil {
					c.SnapshotEveryTicks = val
				} else {
					log.Printf("Invalid value for snapshot-every-ticks: %s, using default 1000", v)
					c.SnapshotEveryTicks = 1000
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "FLUIDNET_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	// Register string flags first
	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	// Parse flags once
	flag.Parse()

	// Resolve values for each resolver
	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// loadNetworkConfigFromFile loads a network configuration from a JSON file
// and validates it.
func loadNetworkConfigFromFile(path string) (fluid.NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fluid.NetworkConfig{}, err
	}

	var cfg fluid.NetworkConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fluid.NetworkConfig{}, err
	}

	if err := fluid.ValidateNetworkConfig(cfg); err != nil {
		return fluid.NetworkConfig{}, err
	}

	return cfg, nil
}
