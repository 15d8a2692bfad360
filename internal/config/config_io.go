package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

func configPath(dir string) (yamlPath, jsonPath string) {
	return filepath.Join(dir, "config.yaml"), filepath.Join(dir, "config.json")
}

// LoadGlobalConfig tries the hand-editable YAML file first, falling
// back to the machine-written JSON file, then to zero-value defaults
// if neither exists.
func LoadGlobalConfig() (GlobalConfig, error) {
	dir, err := Dir()
	if err != nil {
		return GlobalConfig{}, err
	}
	yamlPath, jsonPath := configPath(dir)

	if data, err := os.ReadFile(yamlPath); err == nil {
		var cfg GlobalConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return cfg, nil
	}
	if data, err := os.ReadFile(jsonPath); err == nil {
		var cfg GlobalConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return cfg, nil
	}
	return GlobalConfig{}, nil
}

// SaveGlobalConfig writes cfg to the JSON file atomically (temp +
// rename), the teacher's canonical write pattern for machine-written
// config.
func SaveGlobalConfig(cfg GlobalConfig) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	_, jsonPath := configPath(dir)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := jsonPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, jsonPath)
}
