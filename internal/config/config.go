package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	LLM struct {
		APIKey         string  `yaml:"api_key"`
		BaseURL        string  `yaml:"base_url"`
		TextModel      string  `yaml:"text_model"`
		VisionModel    string  `yaml:"vision_model"`
		Temperature    float64 `yaml:"temperature"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`

	Limits struct {
		MaxTextLength       int `yaml:"max_text_length"`
		MaxContextLength    int `yaml:"max_context_length"`
		MaxURLContentLength int `yaml:"max_url_content_length"`
		MaxImageSizeMB      int `yaml:"max_image_size_mb"`
		URLTimeoutSeconds   int `yaml:"url_timeout_seconds"`
	} `yaml:"limits"`

	Fetch struct {
		CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	} `yaml:"fetch"`

	RateLimit struct {
		RequestsPerMinute int `yaml:"requests_per_minute"`
		Burst             int `yaml:"burst"`
		// reverse proxies (CIDR or IP) whose X-Forwarded-For is believed
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"rate_limit"`

	CORS struct {
		Origins []string `yaml:"origins"`
	} `yaml:"cors"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`

		MaxOpenConns           int `yaml:"max_open_conns"`
		MaxIdleConns           int `yaml:"max_idle_conns"`
		ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Audit struct {
		APIKeys []string `yaml:"api_keys"`
	} `yaml:"audit"`
}

// Default returns the stock settings
func Default() *Config {
	var c Config
	c.App.Title = "Fact Checker API"
	c.App.Version = "1.0.0"
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8000
	c.LLM.BaseURL = "https://api.mistral.ai/v1"
	c.LLM.TextModel = "mistral-large-latest"
	c.LLM.VisionModel = "pixtral-large-latest"
	c.LLM.Temperature = 0.3
	c.LLM.TimeoutSeconds = 60
	c.Limits.MaxTextLength = 10000
	c.Limits.MaxContextLength = 1000
	c.Limits.MaxURLContentLength = 10000
	c.Limits.MaxImageSizeMB = 10
	c.Limits.URLTimeoutSeconds = 30
	c.Fetch.CacheTTLSeconds = 600
	c.RateLimit.RequestsPerMinute = 60
	c.RateLimit.Burst = 10
	c.CORS.Origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Database.SSLMode = "disable"
	c.Database.MaxOpenConns = 25
	c.Database.MaxIdleConns = 10
	c.Database.ConnMaxLifetimeMinutes = 30
	c.Minio.Region = "us-east-1"
	return &c
}

// Load reads the YAML file over the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitCSV(v)
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	for _, key := range []string{"MISTRAL_API_KEY", "LLM_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			c.LLM.APIKey = v
		}
	}
	str("LLM_BASE_URL", &c.LLM.BaseURL)
	str("LLM_TEXT_MODEL", &c.LLM.TextModel)
	str("LLM_VISION_MODEL", &c.LLM.VisionModel)
	if v, ok := os.LookupEnv("LLM_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			c.LLM.Temperature = f
		}
	}
	num("LLM_TIMEOUT_SECONDS", &c.LLM.TimeoutSeconds)

	str("HOST", &c.Server.Host)
	num("PORT", &c.Server.Port)
	list("CORS_ORIGINS", &c.CORS.Origins)
	num("RATE_LIMIT_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	list("TRUSTED_PROXIES", &c.RateLimit.TrustedProxies)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("LOG_FILE", &c.Log.File)

	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_HOST", &c.Database.Host)
	num("DATABASE_PORT", &c.Database.Port)
	str("DATABASE_USER", &c.Database.User)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("DATABASE_NAME", &c.Database.Name)
	str("DATABASE_SSLMODE", &c.Database.SSLMode)
	num("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	num("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	list("AUDIT_API_KEYS", &c.Audit.APIKeys)

	flag("MINIO_ENABLED", &c.Minio.Enabled)
	str("MINIO_ENDPOINT", &c.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("MINIO_BUCKET", &c.Minio.BucketName)
	str("MINIO_REGION", &c.Minio.Region)
	flag("MINIO_USE_SSL", &c.Minio.UseSSL)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required (LLM_API_KEY or MISTRAL_API_KEY)"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"llm.timeout_seconds", c.LLM.TimeoutSeconds},
		{"limits.max_text_length", c.Limits.MaxTextLength},
		{"limits.max_context_length", c.Limits.MaxContextLength},
		{"limits.max_url_content_length", c.Limits.MaxURLContentLength},
		{"limits.max_image_size_mb", c.Limits.MaxImageSizeMB},
		{"limits.url_timeout_seconds", c.Limits.URLTimeoutSeconds},
	} {
		if f.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", f.name))
		}
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns && c.Database.MaxOpenConns > 0 {
		errs = append(errs, fmt.Errorf("database.max_idle_conns (%d) exceeds max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns))
	}
	for _, p := range c.RateLimit.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			errs = append(errs, fmt.Errorf("rate_limit.trusted_proxies: invalid entry %q", p))
		}
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be mysql, postgres or empty, got %q", c.Database.Driver))
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucketName are required when minio is enabled"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func (c *Config) URLTimeout() time.Duration {
	return time.Duration(c.Limits.URLTimeoutSeconds) * time.Second
}

func (c *Config) FetchCacheTTL() time.Duration {
	return time.Duration(c.Fetch.CacheTTLSeconds) * time.Second
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetimeMinutes) * time.Minute
}

func (c *Config) MaxImageBytes() int64 {
	return int64(c.Limits.MaxImageSizeMB) << 20
}

// MySQLDSN builds the go-sql-driver DSN
func (c *Config) MySQLDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		port,
		c.Database.Name,
	)
}

// PostgresDSN builds the lib/pq connection string
func (c *Config) PostgresDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		port,
		c.Database.User,
		quoteDSN(c.Database.Password),
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func quoteDSN(v string) string {
	if v == "" || strings.ContainsAny(v, ` '\`) {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
