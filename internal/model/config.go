package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// BackendConfig locates the Allô Services backend.
type BackendConfig struct {
	// BaseURL is the backend origin; the /api prefix is added per request.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds non-streaming requests.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// AlertsConfig holds the alerts feed and unread counter settings.
type AlertsConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	WindowHours     int `mapstructure:"window_hours" yaml:"window_hours"`
}

// DefaultGreeting opens every chat.
const DefaultGreeting = "Bonjour, je suis Allô IA, l'assistant IA d'Allô Services CI. " +
	"Posez-moi vos questions en lien avec la Côte d'Ivoire ou demandez un document " +
	"(CV, lettre, ordre de mission...)."

// AIConfig holds settings for the AI chat assistant.
type AIConfig struct {
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`

	// Greeting, when set, opens every transcript as an assistant message.
	Greeting string `mapstructure:"greeting" yaml:"greeting"`
}

// StorageConfig locates the local durable key-value database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LogConfig controls the file logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// PaymentsConfig selects the premium payment provider and price.
type PaymentsConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	AmountFCFA int    `mapstructure:"amount_fcfa" yaml:"amount_fcfa"`
}

// LocationConfig stands in for device GPS in "near me" searches. Both
// coordinates must be set for the location to be used.
type LocationConfig struct {
	Lat   float64 `mapstructure:"lat" yaml:"lat"`
	Lng   float64 `mapstructure:"lng" yaml:"lng"`
	MaxKM float64 `mapstructure:"max_km" yaml:"max_km"`
}

// Point returns the configured position, or nil when unset.
func (l LocationConfig) Point() *LatLng {
	if l.Lat == 0 && l.Lng == 0 {
		return nil
	}
	return &LatLng{Lat: l.Lat, Lng: l.Lng}
}

// PushConfig controls the local push receiver. An empty ListenAddr
// disables it.
type PushConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend  BackendConfig  `mapstructure:"backend" yaml:"backend"`
	Alerts   AlertsConfig   `mapstructure:"alerts" yaml:"alerts"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Payments PaymentsConfig `mapstructure:"payments" yaml:"payments"`
	Location LocationConfig `mapstructure:"location" yaml:"location"`
	Push     PushConfig     `mapstructure:"push" yaml:"push"`
}

// Validate checks the settings the client cannot run without.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf(
			"backend.base_url is missing: set it in the config file " +
				"or export ALLOCI_BACKEND_URL",
		)
	}
	if c.Alerts.PollIntervalSec <= 0 {
		return fmt.Errorf("alerts.poll_interval_sec must be > 0")
	}
	return nil
}

// ConfigDir returns ~/.config/alloci, or the working directory when the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "alloci")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/alloci/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: BackendConfig{TimeoutSec: 30},
		Alerts: AlertsConfig{
			PollIntervalSec: 20,
			WindowHours:     24,
		},
		AI: AIConfig{
			Temperature: 0.5,
			MaxTokens:   1000,
			Greeting:    DefaultGreeting,
		},
		Storage: StorageConfig{
			DBPath: filepath.Join(ConfigDir(), "alloci.db"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(ConfigDir(), "alloci.log"),
		},
		Payments: PaymentsConfig{
			Provider:   "cinetpay",
			AmountFCFA: DefaultPremiumAmountFCFA,
		},
		Location: LocationConfig{MaxKM: 5},
		Push:     PushConfig{ListenAddr: "127.0.0.1:8642"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration. The
// backend URL can always be overridden from the environment.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("backend.timeout_sec", def.Backend.TimeoutSec)
	v.SetDefault("alerts.poll_interval_sec", def.Alerts.PollIntervalSec)
	v.SetDefault("alerts.window_hours", def.Alerts.WindowHours)
	v.SetDefault("ai.temperature", def.AI.Temperature)
	v.SetDefault("ai.max_tokens", def.AI.MaxTokens)
	v.SetDefault("ai.greeting", def.AI.Greeting)
	v.SetDefault("storage.db_path", def.Storage.DBPath)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("payments.provider", def.Payments.Provider)
	v.SetDefault("payments.amount_fcfa", def.Payments.AmountFCFA)
	v.SetDefault("location.max_km", def.Location.MaxKM)
	v.SetDefault("push.listen_addr", def.Push.ListenAddr)

	v.SetEnvPrefix("alloci")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := def
	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// The mobile build read EXPO_PUBLIC_BACKEND_URL; honour it as well.
	if url := os.Getenv("ALLOCI_BACKEND_URL"); url != "" {
		cfg.Backend.BaseURL = url
	} else if url := os.Getenv("EXPO_PUBLIC_BACKEND_URL"); url != "" && cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = url
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("alerts", cfg.Alerts)
	v.Set("ai", cfg.AI)
	v.Set("storage", cfg.Storage)
	v.Set("log", cfg.Log)
	v.Set("payments", cfg.Payments)
	v.Set("location", cfg.Location)
	v.Set("push", cfg.Push)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
