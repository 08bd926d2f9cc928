package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName      = "smartcal"
	configFileYAML     = "config.yaml"
	configFileTOML     = "config.toml"
	credentialsFile    = "credentials.json"
	serviceAccountFile = "service-account.json"
	tokenFile          = "token.json"
	tokenDBFile        = "tokens.db"
	icsFile            = "events.ics"
	configDirPermMode  = 0o700
)

// GetConfigDir returns the configuration directory path (~/.config/smartcal)
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetConfigPath returns the config file to load: config.yaml if present,
// otherwise config.toml if present, otherwise the config.yaml path.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	for _, name := range []string{configFileYAML, configFileTOML} {
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return filepath.Join(configDir, configFileYAML), nil
}

// GetCredentialsPath returns the path to the OAuth credentials file
func GetCredentialsPath() (string, error) {
	return inConfigDir(credentialsFile)
}

// GetServiceAccountPath returns the path to the service account key file
func GetServiceAccountPath() (string, error) {
	return inConfigDir(serviceAccountFile)
}

// GetTokenPath returns the path to the OAuth token file
func GetTokenPath() (string, error) {
	return inConfigDir(tokenFile)
}

// GetTokenDBPath returns the path to the SQLite token database
func GetTokenDBPath() (string, error) {
	return inConfigDir(tokenDBFile)
}

// GetICSPath returns the path of the local calendar file
func GetICSPath() (string, error) {
	return inConfigDir(icsFile)
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, configDirPermMode); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return nil
}

func inConfigDir(name string) (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, name), nil
}
