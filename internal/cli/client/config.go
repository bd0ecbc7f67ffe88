package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// GlobalConfig is the per-user CLI configuration kept in config.yaml.
type GlobalConfig struct {
	APIKey string `yaml:"api_key"`
	APIURL string `yaml:"api_url,omitempty"`
	Output string `yaml:"output,omitempty"`
}

// configDirFunc is swapped out in tests.
var configDirFunc = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "mathbot"), nil
}

// GetConfigDir returns the directory holding the CLI configuration.
func GetConfigDir() (string, error) {
	return configDirFunc()
}

// GetConfigPath returns the path of config.yaml.
func GetConfigPath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadGlobalConfig reads config.yaml. A missing file is (nil, nil).
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveGlobalConfig replaces config.yaml with cfg. The file is readable by the
// owner only and is swapped in with a rename so readers never see half a file.
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes config.yaml. Deleting a missing file succeeds.
func DeleteGlobalConfig() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// IsValidAPIKey rejects empty keys and keys with whitespace or control characters.
func IsValidAPIKey(key string) bool {
	if key == "" || len(key) > 512 {
		return false
	}
	for _, r := range key {
		if r <= ' ' || r == 0x7f {
			return false
		}
	}
	return true
}

// CredentialSource names where the API key was found.
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceNone         CredentialSource = "none"
)

// GetCredentialSource resolves the API key and URL: flag, then environment,
// then config.yaml.
func GetCredentialSource(flagAPIKey, flagAPIURL string) (CredentialSource, string, string) {
	if flagAPIKey != "" {
		return SourceFlag, flagAPIKey, orDefaultURL(flagAPIURL)
	}

	if envKey := os.Getenv(envAPIKey); envKey != "" {
		return SourceEnv, envKey, orDefaultURL(firstNonEmpty(flagAPIURL, os.Getenv(envAPIURL)))
	}

	cfg, err := LoadGlobalConfig()
	if err == nil && cfg != nil && cfg.APIKey != "" {
		return SourceGlobalConfig, cfg.APIKey, orDefaultURL(firstNonEmpty(flagAPIURL, cfg.APIURL))
	}

	return SourceNone, "", orDefaultURL(firstNonEmpty(flagAPIURL, os.Getenv(envAPIURL)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orDefaultURL(u string) string {
	if u == "" {
		return defaultAPIURL
	}
	return u
}
