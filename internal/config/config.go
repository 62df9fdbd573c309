package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clipforge/api/internal/model"
)

// readSecret reads a Docker secret from a file path specified by an env
// var with _FILE suffix. If FOO is already set directly, the file is
// skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Paths     PathsConfig
	Queue     QueueConfig
	Download  DownloadConfig
	Webhook   WebhookConfig
	Retention RetentionConfig
	Render    RenderConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	LogLevel string
}

type PathsConfig struct {
	TempDir      string
	TemplatesDir string
}

type QueueConfig struct {
	MaxConcurrentJobs int
	MaxQueueSize      int
}

type DownloadConfig struct {
	Timeout           time.Duration
	ParallelDownloads int
	ParallelScenes    int
	AllowedDomains    []string
}

type WebhookConfig struct {
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

type RetentionConfig struct {
	VideoRetentionHours int
}

type RenderConfig struct {
	DefaultMode model.RenderMode
}

type AuthConfig struct {
	APIKeys []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	RenderPerHour int
}

func Load() (*Config, error) {
	readSecret("REDIS_PASSWORD")
	readSecret("API_KEYS")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("paths.temp_dir", "TEMP_DIR")
	_ = viper.BindEnv("paths.templates_dir", "TEMPLATES_DIR")
	_ = viper.BindEnv("queue.max_concurrent_jobs", "MAX_CONCURRENT_JOBS")
	_ = viper.BindEnv("queue.max_queue_size", "MAX_QUEUE_SIZE")
	_ = viper.BindEnv("download.timeout_seconds", "IMAGE_DOWNLOAD_TIMEOUT")
	_ = viper.BindEnv("download.parallel_downloads", "PARALLEL_DOWNLOADS")
	_ = viper.BindEnv("download.parallel_scenes", "PARALLEL_SCENES")
	_ = viper.BindEnv("download.allowed_domains", "ALLOWED_DOMAINS")
	_ = viper.BindEnv("webhook.timeout_seconds", "WEBHOOK_TIMEOUT")
	_ = viper.BindEnv("webhook.retries", "WEBHOOK_RETRIES")
	_ = viper.BindEnv("webhook.backoff_seconds", "WEBHOOK_BACKOFF")
	_ = viper.BindEnv("retention.video_retention_hours", "VIDEO_RETENTION_HOURS")
	_ = viper.BindEnv("render.default_mode", "DEFAULT_RENDER_MODE")
	_ = viper.BindEnv("auth.api_keys", "API_KEYS")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("ratelimit.render_per_hour", "RENDER_RATE_PER_HOUR")

	viper.SetDefault("server.port", "10000")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("paths.temp_dir", "/tmp/videos")
	viper.SetDefault("paths.templates_dir", "./templates")
	viper.SetDefault("queue.max_concurrent_jobs", 2)
	viper.SetDefault("queue.max_queue_size", 10)
	viper.SetDefault("download.timeout_seconds", 30)
	viper.SetDefault("download.parallel_downloads", 4)
	viper.SetDefault("download.parallel_scenes", 2)
	viper.SetDefault("download.allowed_domains", "")
	viper.SetDefault("webhook.timeout_seconds", 10)
	viper.SetDefault("webhook.retries", 3)
	viper.SetDefault("webhook.backoff_seconds", 2)
	viper.SetDefault("retention.video_retention_hours", 24)
	viper.SetDefault("render.default_mode", string(model.RenderModeBalanced))
	viper.SetDefault("auth.api_keys", "")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("ratelimit.render_per_hour", 30)

	// Config file is optional; env vars carry production settings.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Paths: PathsConfig{
			TempDir:      viper.GetString("paths.temp_dir"),
			TemplatesDir: viper.GetString("paths.templates_dir"),
		},
		Queue: QueueConfig{
			MaxConcurrentJobs: viper.GetInt("queue.max_concurrent_jobs"),
			MaxQueueSize:      viper.GetInt("queue.max_queue_size"),
		},
		Download: DownloadConfig{
			Timeout:           time.Duration(viper.GetInt("download.timeout_seconds")) * time.Second,
			ParallelDownloads: viper.GetInt("download.parallel_downloads"),
			ParallelScenes:    viper.GetInt("download.parallel_scenes"),
			AllowedDomains:    splitList(viper.GetString("download.allowed_domains")),
		},
		Webhook: WebhookConfig{
			Timeout: time.Duration(viper.GetInt("webhook.timeout_seconds")) * time.Second,
			Retries: viper.GetInt("webhook.retries"),
			Backoff: time.Duration(viper.GetInt("webhook.backoff_seconds")) * time.Second,
		},
		Retention: RetentionConfig{
			VideoRetentionHours: viper.GetInt("retention.video_retention_hours"),
		},
		Render: RenderConfig{
			DefaultMode: model.RenderMode(viper.GetString("render.default_mode")),
		},
		Auth: AuthConfig{
			APIKeys: splitList(viper.GetString("auth.api_keys")),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			RenderPerHour: viper.GetInt("ratelimit.render_per_hour"),
		},
	}

	if !cfg.Render.DefaultMode.Valid() {
		cfg.Render.DefaultMode = model.RenderModeBalanced
	}

	return cfg, nil
}

// splitList parses a comma-separated env value into trimmed entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
