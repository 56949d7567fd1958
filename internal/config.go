package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	// Defaults for the wire-facing knobs. The transfer port doubles as the
	// announced port; the discovery port is where announcements are heard.
	DefaultTransferPort        = 8370
	DefaultDiscoveryPort       = 8369
	DefaultBroadcastSourcePort = 38369
)

type AppConfig struct {
	TransferPort         int    `mapstructure:"transfer_port"`
	DiscoveryPort        int    `mapstructure:"discovery_port"`
	BroadcastSourcePort  int    `mapstructure:"broadcast_source_port"`
	BroadcastIntervalMs  int    `mapstructure:"broadcast_interval_ms"`
	DiscoveryTimeoutSecs int    `mapstructure:"discovery_timeout_secs"`
	ChunkSize            int    `mapstructure:"chunk_size"`
	ClientUuid           string `mapstructure:"client_uuid"`
	LogLevel             string `mapstructure:"log_level"`
}

func LoadAppConfig(configPath string) (*AppConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v, err := initViper(configPath, filepath.Join(home, ".sf"), "config", "toml", "SF")
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("transfer_port", DefaultTransferPort)
	v.SetDefault("discovery_port", DefaultDiscoveryPort)
	v.SetDefault("broadcast_source_port", DefaultBroadcastSourcePort)
	v.SetDefault("broadcast_interval_ms", 1000)
	v.SetDefault("discovery_timeout_secs", 30)
	v.SetDefault("chunk_size", 4<<20)
	v.SetDefault("client_uuid", uuid.New().String())
	v.SetDefault("log_level", "info")

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Create-on-first-run only: if viper found no file, persist the defaults
	// so the generated client uuid stays stable across invocations.
	if v.ConfigFileUsed() == "" {
		writePath := configPath
		if writePath == "" {
			writePath = filepath.Join(home, ".sf", "config.toml")
		}
		if _, statErr := os.Stat(writePath); errors.Is(statErr, os.ErrNotExist) {
			if err := cfg.Save(writePath); err != nil {
				return nil, fmt.Errorf("persist default config: %w", err)
			}
			Debug("default config written", Fields{
				ConfigPath: writePath,
			})
		}
	}

	return &cfg, nil
}

func (cfg *AppConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("transfer_port", cfg.TransferPort)
	v.Set("discovery_port", cfg.DiscoveryPort)
	v.Set("broadcast_source_port", cfg.BroadcastSourcePort)
	v.Set("broadcast_interval_ms", cfg.BroadcastIntervalMs)
	v.Set("discovery_timeout_secs", cfg.DiscoveryTimeoutSecs)
	v.Set("chunk_size", cfg.ChunkSize)
	v.Set("client_uuid", cfg.ClientUuid)
	v.Set("log_level", cfg.LogLevel)
	return v.WriteConfigAs(path)
}

func initViper(configPath, defaultDir, defaultName, defaultType, envPrefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(defaultType)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultDir)
		v.AddConfigPath(".")
		v.SetConfigName(defaultName)
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}
