package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/baedrik/skulls2/internal/paths"
	"github.com/baedrik/skulls2/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "SKULLS"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyListenAddr  = "listen_addr"
	cfgKeyAdminToken  = "admin_token"
	cfgKeyViewerToken = "viewer_token"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"

	defaultListenAddr = ":8080"
	defaultLogLevel   = "info"
	defaultLogFormat  = "text"
)

// envKeys are the settings that SKULLS_<KEY> overrides. data_dir is left out
// because SKULLS_DATA_DIR ranks below the config file.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyListenAddr,
	cfgKeyAdminToken,
	cfgKeyViewerToken,
	cfgKeyLogLevel,
	cfgKeyLogFormat,
}

// settings is the resolved configuration.
type settings struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir,omitempty"`
	ListenAddr  string `yaml:"listen_addr"`
	AdminToken  string `yaml:"admin_token,omitempty"`
	ViewerToken string `yaml:"viewer_token,omitempty"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

func defaultSettings() settings {
	return settings{
		Backend:    types.BackendSQLite,
		ListenAddr: defaultListenAddr,
		LogLevel:   defaultLogLevel,
		LogFormat:  defaultLogFormat,
	}
}

// loadSettings reads config.yaml from configDir with viper, layering
// environment overrides on top. A missing config file is not an error.
func loadSettings(configDir string) (settings, error) {
	d := defaultSettings()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyListenAddr, d.ListenAddr)
	v.SetDefault(cfgKeyLogLevel, d.LogLevel)
	v.SetDefault(cfgKeyLogFormat, d.LogFormat)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return settings{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	s := settings{
		Backend:     v.GetString(cfgKeyBackend),
		DataDir:     v.GetString(cfgKeyDataDir),
		ListenAddr:  v.GetString(cfgKeyListenAddr),
		AdminToken:  v.GetString(cfgKeyAdminToken),
		ViewerToken: v.GetString(cfgKeyViewerToken),
		LogLevel:    v.GetString(cfgKeyLogLevel),
		LogFormat:   v.GetString(cfgKeyLogFormat),
	}
	if err := (types.Config{Backend: s.Backend}).Validate(); err != nil {
		return settings{}, fmt.Errorf("config %s %q: %w", cfgKeyBackend, s.Backend, err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml in configDir from s. An existing
// file is left untouched. It reports whether the file was written.
func writeConfigIfMissing(configDir string, s settings) (bool, error) {
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, err
	}
	return true, nil
}
