package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ScannerConfig controls a single wrapped tool.
type ScannerConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Image    string `yaml:"image,omitempty"`   // override the default container image
	Timeout  string `yaml:"timeout,omitempty"` // per-tool override, e.g. "15m"
}

// SonarConfig holds the SonarQube server connection. The token is stored with
// the same 0600 file permissions the provider API keys get.
type SonarConfig struct {
	HostURL    string `yaml:"host_url,omitempty"`
	Token      string `yaml:"token,omitempty"`
	ProjectKey string `yaml:"project_key,omitempty"`
}

type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
}

type Config struct {
	ReportsDir  string                    `yaml:"reports_dir"`
	DockerPath  string                    `yaml:"docker_path,omitempty"`
	Concurrency int                       `yaml:"concurrency"`
	ScanTimeout string                    `yaml:"scan_timeout"` // default per-tool timeout
	FailOn      string                    `yaml:"fail_on,omitempty"`
	PolicyFile  string                    `yaml:"policy_file,omitempty"`
	Scanners    map[string]ScannerConfig  `yaml:"scanners,omitempty"`
	Sonar       SonarConfig               `yaml:"sonar,omitempty"`
	Provider    string                    `yaml:"selected_provider,omitempty"`
	Model       string                    `yaml:"selected_model,omitempty"`
	Providers   map[string]ProviderConfig `yaml:"providers,omitempty"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".secsweep")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// DefaultConfig returns the config used when no file exists yet.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		ReportsDir:  filepath.Join(home, ".secsweep", "reports"),
		Concurrency: 3,
		ScanTimeout: "10m",
		Scanners:    make(map[string]ScannerConfig),
		Providers:   make(map[string]ProviderConfig),
	}
}

func LoadConfig() (*Config, error) {
	// A .env beside the working directory may carry SONAR_TOKEN etc.
	_ = godotenv.Load()

	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if cfg.Scanners == nil {
		cfg.Scanners = make(map[string]ScannerConfig)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets environment variables win over the file, which is how the
// tool runs in CI where there is no home directory config.
func (c *Config) applyEnv() {
	if v := os.Getenv("SECSWEEP_REPORTS_DIR"); v != "" {
		c.ReportsDir = v
	}
	if v := os.Getenv("SECSWEEP_DOCKER"); v != "" {
		c.DockerPath = v
	}
	if v := os.Getenv("SECSWEEP_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("SONAR_HOST_URL"); v != "" {
		c.Sonar.HostURL = v
	}
	if v := os.Getenv("SONAR_TOKEN"); v != "" {
		c.Sonar.Token = v
	}
}

func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 0600 permissions for security (api keys, sonar token)
	return os.WriteFile(path, data, 0600)
}

// TimeoutFor resolves the effective timeout for a scanner.
func (c *Config) TimeoutFor(scanner string) time.Duration {
	if sc, ok := c.Scanners[scanner]; ok && sc.Timeout != "" {
		if d, err := time.ParseDuration(sc.Timeout); err == nil {
			return d
		}
	}
	if d, err := time.ParseDuration(c.ScanTimeout); err == nil {
		return d
	}
	return 10 * time.Minute
}

// Enabled reports whether a scanner should run.
func (c *Config) Enabled(scanner string) bool {
	sc, ok := c.Scanners[scanner]
	return !ok || !sc.Disabled
}

func (c *Config) SetAPIKey(provider, key string) {
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

func (c *Config) GetAPIKey(provider string) string {
	return c.Providers[provider].APIKey
}
