package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SweepConfigManager loads, validates and saves sweep configurations
type SweepConfigManager struct {
	validator Validator
}

// NewSweepConfigManager creates a new sweep configuration manager
func NewSweepConfigManager() *SweepConfigManager {
	return &SweepConfigManager{
		validator: NewSweepValidator(),
	}
}

// LoadConfig reads a sweep configuration file. An empty path yields the default sweep.
// Environment values fill settings the file leaves unset.
func (m *SweepConfigManager) LoadConfig(configFile string, env Env) (*SweepConfig, error) {
	cfg := NewDefaultSweepConfig()
	if configFile != "" {
		loaded, err := m.loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		cfg = loaded
	}

	cfg.ApplyDefaults()
	env.Apply(cfg)
	if cfg.Interval == DefaultInterval && cfg.DataFile != "" {
		if interval := extractIntervalFromPath(cfg.DataFile); interval != "" {
			cfg.Interval = interval
		}
	}

	if err := m.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (m *SweepConfigManager) loadFromFile(configFile string) (*SweepConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg SweepConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	return &cfg, nil
}

// ValidateConfig validates a configuration
func (m *SweepConfigManager) ValidateConfig(cfg *SweepConfig) error {
	return m.validator.Validate(cfg)
}

// SaveConfig saves configuration to file
func (m *SweepConfigManager) SaveConfig(cfg *SweepConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// extractIntervalFromPath extracts the interval from a cached data file path.
// Example: "data/bybit/linear/BTCUSDT/5/candles.csv" -> "5m"
func extractIntervalFromPath(dataPath string) string {
	if dataPath == "" {
		return ""
	}

	parts := strings.Split(filepath.ToSlash(dataPath), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if minutes, err := strconv.Atoi(part); err == nil && minutes > 0 {
			return minutesToInterval(minutes)
		}
		if len(part) >= 2 {
			last := part[len(part)-1]
			if last == 'm' || last == 'h' || last == 'd' {
				if _, err := strconv.Atoi(part[:len(part)-1]); err == nil {
					return part
				}
			}
		}
	}
	return ""
}

func minutesToInterval(minutes int) string {
	switch {
	case minutes%(24*60) == 0:
		return strconv.Itoa(minutes/(24*60)) + "d"
	case minutes%60 == 0:
		return strconv.Itoa(minutes/60) + "h"
	default:
		return strconv.Itoa(minutes) + "m"
	}
}
