package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/nepviewer"
	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "NEPCOLLECTOR"
	DefaultLogLevel   = string(LogLevelInfo)
	DefaultDBPath     = "/var/lib/nepcollector/metrics.db"
	DefaultTimeout    = 30
	DefaultMonitorURL = nepviewer.DefaultMonitorURL
	DefaultUserURL    = nepviewer.DefaultUserURL

	configName = "nepcollector"
	configType = "toml"
)

var defaultSearchPaths = []string{
	"/etc/nepcollector",
	"$HOME/.config/nepcollector",
}

type Config struct {
	Email           string `mapstructure:"email" toml:"email"`
	Password        string `mapstructure:"password" toml:"password"`
	SerialNumber    string `mapstructure:"serial_number" toml:"serial_number"`
	DBPath          string `mapstructure:"db_path" toml:"db_path"`
	Timezone        string `mapstructure:"timezone" toml:"timezone"`
	Timeout         int    `mapstructure:"timeout" toml:"timeout"`
	LogLevel        string `mapstructure:"log_level" toml:"log_level"`
	Debug           bool   `mapstructure:"debug" toml:"debug"`
	PidDir          string `mapstructure:"pid_dir" toml:"pid_dir"`
	BackupOnMigrate bool   `mapstructure:"backup_on_migrate" toml:"backup_on_migrate"`
	BackupDir       string `mapstructure:"backup_dir" toml:"backup_dir"`
	MonitorURL      string `mapstructure:"monitor_url" toml:"monitor_url"`
	UserURL         string `mapstructure:"user_url" toml:"user_url"`

	// Per-invocation switches, never written to a config file.
	Now        bool   `mapstructure:"now" toml:"-"`
	InitConfig string `mapstructure:"init_config" toml:"-"`
	ConfigFile string `mapstructure:"-" toml:"-"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		DBPath:          DefaultDBPath,
		Timeout:         DefaultTimeout,
		LogLevel:        DefaultLogLevel,
		PidDir:          os.TempDir(),
		BackupOnMigrate: true,
		MonitorURL:      DefaultMonitorURL,
		UserURL:         DefaultUserURL,
	}
}

// Load reads the configuration from defaults, the config file, the
// environment and command line flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix:   DefaultEnvPrefix,
		args:        os.Args[1:],
		searchPaths: defaultSearchPaths,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if f := fs.Lookup("config"); configPath == "" && f.Changed {
		configPath = f.Value.String()
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if err := readConfigFile(v, configPath, o.searchPaths); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if cfg.Debug {
		cfg.LogLevel = string(LogLevelDebug)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "warn" {
		cfg.LogLevel = string(LogLevelWarning)
	}
	if !LogLevel(cfg.LogLevel).IsValid() {
		return nil, errFactory.WithData(errors.ErrInvalidLogLevel, cfg.LogLevel)
	}

	if cfg.Timeout <= 0 {
		return nil, errFactory.WithMessage(errors.ErrInvalidConfig, "timeout must be a positive number of seconds")
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("email", d.Email)
	v.SetDefault("password", d.Password)
	v.SetDefault("serial_number", d.SerialNumber)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("now", d.Now)
	v.SetDefault("pid_dir", d.PidDir)
	v.SetDefault("backup_on_migrate", d.BackupOnMigrate)
	v.SetDefault("backup_dir", d.BackupDir)
	v.SetDefault("monitor_url", d.MonitorURL)
	v.SetDefault("user_url", d.UserURL)
	v.SetDefault("init_config", d.InitConfig)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("nepcollector", pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debug logging")
	fs.Bool("now", false, "Print the current inverter output and exit")
	fs.String("serial-number", "", "Serial number of the inverter")
	fs.String("db-path", DefaultDBPath, "Path to the metrics database")
	fs.String("init-config", "", "Write a default configuration file to the given path and exit")
	return fs
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"log_level":     "log-level",
		"debug":         "debug",
		"now":           "now",
		"serial_number": "serial-number",
		"db_path":       "db-path",
		"init_config":   "init-config",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

func readConfigFile(v *viper.Viper, path string, searchPaths []string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(configType)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	for _, p := range searchPaths {
		v.AddConfigPath(os.ExpandEnv(p))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks the settings a collection run cannot do without.
func (c *Config) Validate() error {
	errFactory := errors.New()

	var missing []string
	if c.Email == "" {
		missing = append(missing, "email")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.SerialNumber == "" {
		missing = append(missing, "serial_number")
	}
	if len(missing) > 0 {
		return errFactory.WithData(errors.ErrMissingConfig, strings.Join(missing, ", "))
	}

	if c.DBPath == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "db_path must not be empty")
	}

	return nil
}

// Location resolves the configured time zone. An empty zone means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidTimezone, err)
	}

	return loc, nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// WriteDefault writes a default configuration file to path. An existing file
// is never overwritten.
func WriteDefault(path string) error {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	return nil
}
