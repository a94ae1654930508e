package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default file names for provider configuration in an initialized working
// directory. The defaults file ships with the provider; the config file is
// the operator's.
const (
	FileName         = "cosmo-config.yaml"
	DefaultsFileName = "cosmo-config.defaults.yaml"
)

// ManagementSettings is the slice of the merged configuration every
// provider must supply for bootstrap to reach the management host.
type ManagementSettings struct {
	PublicIP string `yaml:"public_ip" validate:"omitempty,ip"`
	User     string `yaml:"user" validate:"required"`
	KeyPath  string `yaml:"key_path" validate:"required"`
}

// ReadEffective reads the operator config and the defaults file and merges
// the former over the latter.
func ReadEffective(configPath, defaultsPath string) (map[string]interface{}, error) {
	userConfig, err := readDocument(configPath)
	if err != nil {
		return nil, err
	}
	defaults, err := readDocument(defaultsPath)
	if err != nil {
		return nil, err
	}
	merged, err := Merge(userConfig, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s over %s: %w", configPath, defaultsPath, err)
	}
	return merged, nil
}

// ManagementFromEffective extracts and validates the management settings
// section of a merged configuration.
func ManagementFromEffective(effective map[string]interface{}) (*ManagementSettings, error) {
	section, ok := effective["management"]
	if !ok {
		return nil, fmt.Errorf("configuration is missing the 'management' section")
	}
	data, err := yaml.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode management section: %w", err)
	}
	settings := &ManagementSettings{}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse management section: %w", err)
	}
	if err := validator.New().Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid management settings: %w", err)
	}
	return settings, nil
}

func readDocument(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	doc := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	return doc, nil
}
