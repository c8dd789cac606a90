package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shohag/indexpush/internal/submit"
)

type Config struct {
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Submit      SubmitConfig      `mapstructure:"submit"`
	Status      StatusConfig      `mapstructure:"status"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type CredentialsConfig struct {
	Dir string `mapstructure:"dir"`
}

type StorageConfig struct {
	Queue   QueueConfig   `mapstructure:"queue"`
	Results ResultsConfig `mapstructure:"results"`
	BadURLs BadURLsConfig `mapstructure:"bad_urls"`
	SQLite  SQLiteConfig  `mapstructure:"sqlite"`
}

type QueueConfig struct {
	Driver string `mapstructure:"driver"`
	File   string `mapstructure:"file"`
}

type ResultsConfig struct {
	Driver string `mapstructure:"driver"`
	File   string `mapstructure:"file"`
}

type BadURLsConfig struct {
	Driver string `mapstructure:"driver"`
	File   string `mapstructure:"file"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type SubmitConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Delay    time.Duration `mapstructure:"delay"`
	Timeout  time.Duration `mapstructure:"timeout"`
	DryRun   bool          `mapstructure:"dry_run"`
}

type StatusConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("indexpush")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/indexpush")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("INDEXPUSH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("credentials.dir", "json_keys")

	viper.SetDefault("storage.queue.driver", "file")
	viper.SetDefault("storage.queue.file", "urls.csv")
	viper.SetDefault("storage.results.driver", "file")
	viper.SetDefault("storage.results.file", "result.txt")
	viper.SetDefault("storage.bad_urls.driver", "file")
	viper.SetDefault("storage.bad_urls.file", "bad_urls.txt")
	viper.SetDefault("storage.sqlite.path", "./data/indexpush.db")

	viper.SetDefault("submit.endpoint", submit.DefaultEndpoint)
	viper.SetDefault("submit.delay", time.Second)
	viper.SetDefault("submit.timeout", 30*time.Second)
	viper.SetDefault("submit.dry_run", false)

	viper.SetDefault("status.enabled", false)
	viper.SetDefault("status.addr", ":8091")
	viper.SetDefault("status.read_timeout", 10*time.Second)
	viper.SetDefault("status.write_timeout", 10*time.Second)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
