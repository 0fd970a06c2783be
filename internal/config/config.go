// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Profiles ProfilesConfig `mapstructure:"profiles" yaml:"profiles"`
	SMS      SMSConfig      `mapstructure:"sms" yaml:"sms"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Signup   SignupConfig   `mapstructure:"signup" yaml:"signup"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds the connection details for the result store.
// An empty URL disables persistence; results are still logged and may be
// written to the output file.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ProfilesConfig configures the remote browser-profile control service.
type ProfilesConfig struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey          string        `mapstructure:"api_key" yaml:"-"`
	GroupID         string        `mapstructure:"group_id" yaml:"group_id"`
	Fingerprint     string        `mapstructure:"fingerprint" yaml:"fingerprint"`
	AcquireAttempts int           `mapstructure:"acquire_attempts" yaml:"acquire_attempts"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout" yaml:"ready_timeout"`
	ReadyPollEvery  time.Duration `mapstructure:"ready_poll_every" yaml:"ready_poll_every"`
	DeleteOnRelease bool          `mapstructure:"delete_on_release" yaml:"delete_on_release"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// SMSConfig configures the phone-verification provider.
type SMSConfig struct {
	BaseURL      string            `mapstructure:"base_url" yaml:"base_url"`
	APIKey       string            `mapstructure:"api_key" yaml:"-"`
	Service      string            `mapstructure:"service" yaml:"service"`
	Countries    map[string]string `mapstructure:"countries" yaml:"countries"`
	PollInterval time.Duration     `mapstructure:"poll_interval" yaml:"poll_interval"`
	CodeTimeout  time.Duration     `mapstructure:"code_timeout" yaml:"code_timeout"`
	RequestRate  float64           `mapstructure:"request_rate" yaml:"request_rate"`
	ReuseWindow  time.Duration     `mapstructure:"reuse_window" yaml:"reuse_window"`
}

// BrowserConfig tunes the remote browser session primitives.
type BrowserConfig struct {
	OpenTimeout       time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	ShortWait         time.Duration `mapstructure:"short_wait" yaml:"short_wait"`
}

// SignupConfig holds settings for the signup flow itself.
type SignupConfig struct {
	URL              string `mapstructure:"url" yaml:"url"`
	MailDomain       string `mapstructure:"mail_domain" yaml:"mail_domain"`
	UsernameAttempts int    `mapstructure:"username_attempts" yaml:"username_attempts"`
}

// PipelineConfig configures retry budgets and scheduling of account runs.
// The phone-verification stage gets its own attempt budget since SMS delivery
// is slower and noisier than DOM interaction.
type PipelineConfig struct {
	StageAttempts      int           `mapstructure:"stage_attempts" yaml:"stage_attempts"`
	PhoneStageAttempts int           `mapstructure:"phone_stage_attempts" yaml:"phone_stage_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	RunTimeout         time.Duration `mapstructure:"run_timeout" yaml:"run_timeout"`
	Concurrency        int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// OutputConfig controls where created account records are written.
type OutputConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "accountforge")
	v.SetDefault("logger.log_file", "accountforge.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Profiles --
	v.SetDefault("profiles.base_url", "http://local.adspower.net:50325")
	v.SetDefault("profiles.group_id", "0")
	v.SetDefault("profiles.fingerprint", "windows")
	v.SetDefault("profiles.acquire_attempts", 3)
	v.SetDefault("profiles.ready_timeout", "30s")
	v.SetDefault("profiles.ready_poll_every", "1500ms")
	v.SetDefault("profiles.delete_on_release", true)
	v.SetDefault("profiles.request_timeout", "15s")

	// -- SMS --
	v.SetDefault("sms.base_url", "https://api.sms-activate.org/stubs/handler_api.php")
	v.SetDefault("sms.service", "go")
	v.SetDefault("sms.countries", map[string]string{
		"151": "Chile",
		"12":  "United States",
		"40":  "Canada",
		"16":  "United Kingdom",
		"117": "Portugal",
	})
	v.SetDefault("sms.poll_interval", "10s")
	v.SetDefault("sms.code_timeout", "2m")
	v.SetDefault("sms.request_rate", 2.0)
	v.SetDefault("sms.reuse_window", "30m")

	// -- Browser --
	v.SetDefault("browser.open_timeout", "30s")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.element_timeout", "10s")
	v.SetDefault("browser.short_wait", "3s")

	// -- Signup --
	v.SetDefault("signup.url", "https://accounts.google.com/signup/v2/webcreateaccount")
	v.SetDefault("signup.mail_domain", "gmail.com")
	v.SetDefault("signup.username_attempts", 5)

	// -- Pipeline --
	v.SetDefault("pipeline.stage_attempts", 3)
	v.SetDefault("pipeline.phone_stage_attempts", 5)
	v.SetDefault("pipeline.retry_delay", "2s")
	v.SetDefault("pipeline.run_timeout", "15m")
	v.SetDefault("pipeline.concurrency", 1)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	v.BindEnv("sms.api_key", "ACCOUNTFORGE_SMS_API_KEY")
	v.BindEnv("profiles.api_key", "ACCOUNTFORGE_PROFILES_API_KEY")
	v.BindEnv("database.url", "ACCOUNTFORGE_DATABASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Profiles.BaseURL == "" {
		return fmt.Errorf("profiles.base_url is a required configuration field")
	}
	if c.Profiles.AcquireAttempts <= 0 {
		return fmt.Errorf("profiles.acquire_attempts must be a positive integer")
	}
	if c.SMS.Service == "" {
		return fmt.Errorf("sms.service is a required configuration field")
	}
	if len(c.SMS.Countries) == 0 {
		return fmt.Errorf("sms.countries must list at least one country")
	}
	if c.SMS.PollInterval <= 0 {
		return fmt.Errorf("sms.poll_interval must be a positive duration")
	}
	if c.SMS.CodeTimeout <= 0 {
		return fmt.Errorf("sms.code_timeout must be a positive duration")
	}
	if c.Pipeline.StageAttempts <= 0 || c.Pipeline.PhoneStageAttempts <= 0 {
		return fmt.Errorf("pipeline stage attempt budgets must be positive integers")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be a positive integer")
	}
	if c.Signup.URL == "" {
		return fmt.Errorf("signup.url is a required configuration field")
	}
	if c.Signup.UsernameAttempts <= 0 {
		return fmt.Errorf("signup.username_attempts must be a positive integer")
	}
	return nil
}
