package config

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	harukiLogger "haruki-const-decrypter/utils/logger"
)

type BackendConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	SSL                      bool   `yaml:"ssl"`
	SSLCert                  string `yaml:"ssl_cert"`
	SSLKey                   string `yaml:"ssl_key"`
	LogLevel                 string `yaml:"log_level"`
	MainLogFile              string `yaml:"main_log_file"`
	AccessLog                string `yaml:"access_log"`
	AccessLogPath            string `yaml:"access_log_path"`
	EnableAuthorization      bool   `yaml:"enable_authorization,omitempty"`
	AcceptUserAgentPrefix    string `yaml:"accept_user_agent_prefix,omitempty"`
	AcceptAuthorizationToken string `yaml:"accept_authorization_token,omitempty"`
}

// ModuleSource points at a module dump: a file, a directory of dumps or an
// HTTP(S) URL. Exactly one of Path and URL is set.
type ModuleSource struct {
	Name string `yaml:"name,omitempty"`
	Path string `yaml:"path,omitempty"`
	URL  string `yaml:"url,omitempty"`
}

type ReportConfig struct {
	Format    string `yaml:"format,omitempty"`
	OutputDir string `yaml:"output_dir,omitempty"`
	Upload    bool   `yaml:"upload,omitempty"`
}

type RemoteStorageConfig struct {
	Type      string `yaml:"type"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

type Config struct {
	Proxy                string                `yaml:"proxy,omitempty"`
	ConcurrentDecrypters int                   `yaml:"concurrent_decrypters,omitempty"`
	ConcurrentUploads    int                   `yaml:"concurrent_uploads,omitempty"`
	Backend              BackendConfig         `yaml:"backend,omitempty"`
	Modules              []ModuleSource        `yaml:"modules,omitempty"`
	Report               ReportConfig          `yaml:"report,omitempty"`
	RemoteStorages       []RemoteStorageConfig `yaml:"remote_storages,omitempty"`
}

var Version = "v1.0.0-dev"
var Cfg = Default()

var logger = harukiLogger.NewLogger("ConfigLoader", "DEBUG", nil)

func Default() Config {
	return Config{
		ConcurrentDecrypters: 4,
		ConcurrentUploads:    4,
		Backend: BackendConfig{
			Host:     "127.0.0.1",
			Port:     8080,
			LogLevel: "INFO",
		},
		Report: ReportConfig{
			Format:    "json",
			OutputDir: "reports",
		},
	}
}

// Parse decodes a YAML configuration on top of the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path into Cfg. A missing file keeps the defaults.
func Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("Config file %s not found, using defaults", path)
			return nil
		}
		logger.Errorf("Failed to open config file: %v", err)
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	cfg, err := Parse(f)
	if err != nil {
		logger.Errorf("Failed to parse config: %v", err)
		return err
	}
	Cfg = cfg
	return nil
}
