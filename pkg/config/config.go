package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roffe/gopcr"
	"github.com/spf13/viper"
)

// DeviceConfig selects and opens the transport.
type DeviceConfig struct {
	Adapter  string `mapstructure:"adapter"`
	Port     string `mapstructure:"port"`
	Baudrate int    `mapstructure:"baudrate"`
	Debug    bool   `mapstructure:"debug"`
}

// EngineConfig mirrors gopcr.Config.
type EngineConfig struct {
	ChunkSize       int           `mapstructure:"chunkSize"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	RetryStep       time.Duration `mapstructure:"retryStep"`
	BufferCapacity  int           `mapstructure:"bufferCapacity"`
	InitTimeout     time.Duration `mapstructure:"initTimeout"`
	ChangeTimeout   time.Duration `mapstructure:"changeTimeout"`
	PollTimeout     time.Duration `mapstructure:"pollTimeout"`
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`
	TickInterval    time.Duration `mapstructure:"tickInterval"`
	CommandRate     int           `mapstructure:"commandRate"`
	EventBuffer     int           `mapstructure:"eventBuffer"`
}

type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

type UIConfig struct {
	Top      int `mapstructure:"top"`
	Selected int `mapstructure:"selected"`
}

type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	UI      UIConfig      `mapstructure:"ui"`
}

// Load reads configuration from a YAML file, GOPCR_ prefixed environment
// variables and built-in defaults, in falling order of precedence. If path is
// empty gopcr.yaml is looked for in the working directory and
// $HOME/.config/gopcr, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GOPCR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/gopcr")
		v.SetConfigName("gopcr")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := gopcr.DefaultConfig()

	v.SetDefault("device.adapter", "XM PCR VCP")
	v.SetDefault("device.port", "*")
	v.SetDefault("device.baudrate", gopcr.DefaultBaudrate)
	v.SetDefault("device.debug", false)

	v.SetDefault("engine.chunkSize", d.ChunkSize)
	v.SetDefault("engine.readTimeout", d.ReadTimeout)
	v.SetDefault("engine.retryStep", d.RetryStep)
	v.SetDefault("engine.bufferCapacity", d.BufferCapacity)
	v.SetDefault("engine.initTimeout", d.InitTimeout)
	v.SetDefault("engine.changeTimeout", d.ChangeTimeout)
	v.SetDefault("engine.pollTimeout", d.PollTimeout)
	v.SetDefault("engine.responseTimeout", d.ResponseTimeout)
	v.SetDefault("engine.tickInterval", d.TickInterval)
	v.SetDefault("engine.commandRate", d.CommandRate)
	v.SetDefault("engine.eventBuffer", d.EventBuffer)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "gopcr.log")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ui.top", 0)
	v.SetDefault("ui.selected", 0)
}

// ToEngine converts the engine section for gopcr.NewSession.
func (c *Config) ToEngine() *gopcr.Config {
	e := c.Engine
	return &gopcr.Config{
		ChunkSize:       e.ChunkSize,
		ReadTimeout:     e.ReadTimeout,
		RetryStep:       e.RetryStep,
		BufferCapacity:  e.BufferCapacity,
		InitTimeout:     e.InitTimeout,
		ChangeTimeout:   e.ChangeTimeout,
		PollTimeout:     e.PollTimeout,
		ResponseTimeout: e.ResponseTimeout,
		TickInterval:    e.TickInterval,
		CommandRate:     e.CommandRate,
		EventBuffer:     e.EventBuffer,
	}
}
