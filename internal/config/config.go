package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds runtime settings of the matching service.
type Config struct {
	HTTPAddr      string   `yaml:"http_addr"`
	DatabaseDSN   string   `yaml:"database_dsn"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	RedisDB       int      `yaml:"redis_db"`
	JWTSecret     string   `yaml:"jwt_secret"`
	CORSOrigins   []string `yaml:"cors_origins"`

	WaitTimeout       time.Duration `yaml:"wait_timeout"`
	DecisionWindow    time.Duration `yaml:"decision_window"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	ResolvedRetention time.Duration `yaml:"resolved_retention"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`

	// CancelOnDisconnect withdraws a user's wait or session when their last socket drops.
	CancelOnDisconnect bool `yaml:"cancel_on_disconnect"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPAddr:           ":8080",
		DatabaseDSN:        "host=localhost user=user password=password dbname=matchingdb port=5432 sslmode=disable",
		RedisAddr:          "localhost:6379",
		CORSOrigins:        []string{"http://localhost:5173"},
		WaitTimeout:        DefaultWaitTimeout,
		DecisionWindow:     DefaultDecisionWindow,
		SweepInterval:      DefaultSweepInterval,
		ResolvedRetention:  DefaultResolvedRetention,
		ShutdownTimeout:    DefaultShutdownTimeout,
		CancelOnDisconnect: true,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// MATCHING_CONFIG, a .env file and the environment, in that order of precedence
// (environment wins).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	cfg := Default()
	if path := os.Getenv("MATCHING_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("HTTP_ADDR", &c.HTTPAddr)
	setString("DATABASE_DSN", &c.DatabaseDSN)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	setString("JWT_SECRET", &c.JWTSecret)

	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.RedisDB = n
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	if v := getenv("CANCEL_ON_DISCONNECT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CANCEL_ON_DISCONNECT: %w", err)
		}
		c.CancelOnDisconnect = b
	}

	for key, dst := range map[string]*time.Duration{
		"WAIT_TIMEOUT":       &c.WaitTimeout,
		"DECISION_WINDOW":    &c.DecisionWindow,
		"SWEEP_INTERVAL":     &c.SweepInterval,
		"RESOLVED_RETENTION": &c.ResolvedRetention,
		"SHUTDOWN_TIMEOUT":   &c.ShutdownTimeout,
	} {
		if err := setDuration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects settings the coordinator cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"wait_timeout":       c.WaitTimeout,
		"decision_window":    c.DecisionWindow,
		"sweep_interval":     c.SweepInterval,
		"resolved_retention": c.ResolvedRetention,
		"shutdown_timeout":   c.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}
