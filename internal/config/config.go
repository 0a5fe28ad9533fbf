package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// S3 settings
	Bucket    string
	KeyPrefix string
	Region    string

	// Pipeline settings
	Workers int

	// Login credentials
	Username string
	Password string
}

const defaultWorkers = 5

// Load reads configuration from environment variables, with an optional
// .env file for local development. All keys use the EMLVIEWER_ prefix,
// e.g. EMLVIEWER_S3_BUCKET, EMLVIEWER_AUTH_USERNAME.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("emlviewer")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("pipeline.workers", defaultWorkers)
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")

	cfg := &Config{
		Host:      v.GetString("server.host"),
		Port:      v.GetString("server.port"),
		Bucket:    v.GetString("s3.bucket"),
		KeyPrefix: v.GetString("s3.prefix"),
		Region:    v.GetString("s3.region"),
		Workers:   v.GetInt("pipeline.workers"),
		Username:  v.GetString("auth.username"),
		Password:  v.GetString("auth.password"),
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("EMLVIEWER_S3_BUCKET must be set")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("EMLVIEWER_AUTH_USERNAME and EMLVIEWER_AUTH_PASSWORD must be set")
	}
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}

	return cfg, nil
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// URL returns the full server URL
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// loadEnvFile loads an optional .env file from the working directory or
// its parent. Existing environment variables are never overwritten.
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
