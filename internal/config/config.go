package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"github.com/Alexander-D-Karpov/campanula/internal/platform"
)

type Config struct {
	Debug bool `mapstructure:"debug"`

	Gallery struct {
		CatalogPath string `mapstructure:"catalog_path"`
	} `mapstructure:"gallery"`

	Audio struct {
		SampleRate      int     `mapstructure:"sample_rate"`
		BufferMs        int     `mapstructure:"buffer_ms"`
		DefaultVolume   float64 `mapstructure:"default_volume"`
		TickMs          int     `mapstructure:"tick_ms"`
		RetryDelayMs    int     `mapstructure:"retry_delay_ms"`
		ResampleQuality int     `mapstructure:"resample_quality"`
	} `mapstructure:"audio"`

	Layout struct {
		MinColumnWidth  float32 `mapstructure:"min_column_width"`
		Gap             float32 `mapstructure:"gap"`
		ItemHeight      float32 `mapstructure:"item_height"`
		ResizeThreshold float32 `mapstructure:"resize_threshold"`
		DebounceMs      int     `mapstructure:"debounce_ms"`
	} `mapstructure:"layout"`

	Fetch struct {
		Timeout           int    `mapstructure:"timeout"`
		Retries           int    `mapstructure:"retries"`
		RequestsPerSecond int    `mapstructure:"requests_per_second"`
		BurstSize         int    `mapstructure:"burst_size"`
		UserAgent         string `mapstructure:"user_agent"`
		MaxAudioSize      int64  `mapstructure:"max_audio_size"`
	} `mapstructure:"fetch"`

	Storage struct {
		DatabasePath string `mapstructure:"database_path"`
		CacheDir     string `mapstructure:"cache_dir"`
		EnableWAL    bool   `mapstructure:"enable_wal"`
		MaxCacheMB   int64  `mapstructure:"max_cache_mb"`
	} `mapstructure:"storage"`

	Log struct {
		Level      string `mapstructure:"level"`
		File       string `mapstructure:"file"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
	} `mapstructure:"log"`

	UI struct {
		Theme        string `mapstructure:"theme"`
		WindowWidth  int    `mapstructure:"window_width"`
		WindowHeight int    `mapstructure:"window_height"`
	} `mapstructure:"ui"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir, err := platform.GetConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(configDir)
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CAMPANULA")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, err
	}

	normalize(&cfg)

	return &cfg, nil
}

// Default returns the built-in configuration without touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return &cfg
	}
	normalize(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("gallery.catalog_path", "")

	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.buffer_ms", getDefaultBufferMs())
	v.SetDefault("audio.default_volume", 0.7)
	v.SetDefault("audio.tick_ms", 250)
	v.SetDefault("audio.retry_delay_ms", 300)
	v.SetDefault("audio.resample_quality", 4)

	v.SetDefault("layout.min_column_width", 300)
	v.SetDefault("layout.gap", 24)
	v.SetDefault("layout.item_height", 400)
	v.SetDefault("layout.resize_threshold", 2)
	v.SetDefault("layout.debounce_ms", 150)

	v.SetDefault("fetch.timeout", 30)
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.requests_per_second", 8)
	v.SetDefault("fetch.burst_size", 4)
	v.SetDefault("fetch.user_agent", "Campanula/1.0.0")
	v.SetDefault("fetch.max_audio_size", 64*1024*1024)

	dataDir, _ := platform.GetDataDir()
	cacheDir, _ := platform.GetCacheDir()

	v.SetDefault("storage.database_path", filepath.Join(dataDir, "cache.db"))
	v.SetDefault("storage.cache_dir", cacheDir)
	v.SetDefault("storage.enable_wal", true)
	v.SetDefault("storage.max_cache_mb", 512)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(cacheDir, "logs", "campanula.log"))
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 14)

	v.SetDefault("ui.theme", "light")
	v.SetDefault("ui.window_width", 1280)
	v.SetDefault("ui.window_height", 860)
}

func getDefaultBufferMs() int {
	switch runtime.GOOS {
	case "linux":
		return 200
	default:
		return 100
	}
}

func normalize(cfg *Config) {
	if cfg.Audio.DefaultVolume < 0 {
		cfg.Audio.DefaultVolume = 0
	}
	if cfg.Audio.DefaultVolume > 1 {
		cfg.Audio.DefaultVolume = 1
	}
	if cfg.Layout.MinColumnWidth <= 0 {
		cfg.Layout.MinColumnWidth = 300
	}
	if cfg.Layout.Gap < 0 {
		cfg.Layout.Gap = 0
	}
	if cfg.Fetch.RequestsPerSecond <= 0 {
		cfg.Fetch.RequestsPerSecond = 1
	}
	if cfg.Fetch.BurstSize <= 0 {
		cfg.Fetch.BurstSize = 1
	}
	if cfg.Debug {
		cfg.Log.Level = "debug"
	}
}

func ensureDirectories(cfg *Config) error {
	dirs := []string{
		filepath.Dir(cfg.Storage.DatabasePath),
		cfg.Storage.CacheDir,
	}
	if cfg.Log.File != "" {
		dirs = append(dirs, filepath.Dir(cfg.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}
