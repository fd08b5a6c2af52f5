package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config collects the daemon settings from defaults, an optional config
// file and command line flags, in ascending precedence.
type Config struct {
	// Serial link to the drive.
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	SlaveID  int           `mapstructure:"slave_id"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// Polling.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ParamsFile   string        `mapstructure:"params_file"`

	// InfluxDB sink. Host and token come from the environment (or the
	// env file), never from the config file.
	EnvFile           string `mapstructure:"env_file"`
	InfluxOrg         string `mapstructure:"influx_org"`
	InfluxBucket      string `mapstructure:"influx_bucket"`
	InfluxMeasurement string `mapstructure:"influx_measurement"`

	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig reads the configuration from command line flags and an
// optional YAML config file.
func LoadConfig() (*Config, error) {
	viper.SetDefault("device", "/dev/ttyUSB0")
	viper.SetDefault("baud_rate", 9600)
	viper.SetDefault("data_bits", 8)
	viper.SetDefault("parity", "N")
	viper.SetDefault("stop_bits", 1)
	viper.SetDefault("slave_id", 1)
	viper.SetDefault("timeout", 2*time.Second)
	viper.SetDefault("poll_interval", 10*time.Second)
	viper.SetDefault("params_file", "hs321.yaml")
	viper.SetDefault("env_file", "")
	viper.SetDefault("influx_org", "vfdkit")
	viper.SetDefault("influx_bucket", "hs321")
	viper.SetDefault("influx_measurement", "drive")
	viper.SetDefault("log_level", "info")

	pflag.StringP("config", "c", "", "Configuration file path.")
	pflag.StringP("device", "p", viper.GetString("device"), "Serial port device name.")
	pflag.IntP("baud_rate", "s", viper.GetInt("baud_rate"), "Serial port speed.")
	pflag.IntP("slave_id", "a", viper.GetInt("slave_id"), "Slave address of the drive.")
	pflag.DurationP("timeout", "W", viper.GetDuration("timeout"), "Response wait time.")
	pflag.DurationP("poll_interval", "i", viper.GetDuration("poll_interval"), "Pause between polling rounds.")
	pflag.StringP("params_file", "f", viper.GetString("params_file"), "Parameter metadata file.")
	pflag.StringP("env_file", "e", viper.GetString("env_file"), "Env file holding INFLUX_HOST and INFLUX_TOKEN.")
	pflag.StringP("log_level", "v", viper.GetString("log_level"), "Log verbosity level (debug, info, warn, error).")
	pflag.Parse()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("hs321-monitor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/hs321/")
		viper.AddConfigPath("$HOME/.hs321")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		// the whole configuration may come from flags and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Parity = strings.ToUpper(config.Parity)

	return &config, nil
}
