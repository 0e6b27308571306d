// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")
	port       = pflag.Int("port", 0, "Port to listen on, overrides host.port")

	validLogLevels      = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers        = []string{"sqlite", "postgres"}
	validAvatarStorages = []string{"db", "s3"}

	ErrNoJWTSecret = errors.New("no jwt secret provided")
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// SetDefaults binds every key to its environment variable and sets the
// default values. Safe to call more than once.
func SetDefaults() {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//
	// ENVS
	//
	for _, k := range []string{
		"app.log_level",
		"host.port", "host.cors_origins",
		"database.driver", "database.dsn",
		"jwt.secret",
		"mail.enabled", "mail.host", "mail.port", "mail.username", "mail.password", "mail.sender",
		"avatar.storage", "avatar.max_size", "avatar.dimension", "avatar.cache_ttl", "avatar.corrupt_is_client_error",
		"aws.access_key", "aws.secret_access_key", "aws.region", "aws.bucket", "aws.endpoint",
		"security.rate_limit", "security.hash_memory", "security.hash_iterations", "security.hash_parallelism",
		"cloudflare.turnstile.enabled", "cloudflare.turnstile.secret_token",
		"cleanup.schedule",
		"redis.url",
		"metrics.enabled",
	} {
		v.BindEnv(k, strings.ReplaceAll(k, ".", "_"))
	}

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("avatar.storage", "db")
	v.SetDefault("avatar.max_size", 1_000_000)
	v.SetDefault("avatar.dimension", 250)
	v.SetDefault("avatar.cache_ttl", 60)
	v.SetDefault("avatar.corrupt_is_client_error", true)

	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("security.rate_limit", 0)

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("cleanup.schedule", "@daily")

	v.SetDefault("metrics.enabled", false)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()

	// A .env next to the binary is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env file, %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	SetDefaults()

	if *port > 0 {
		v.Set("host.port", *port)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		fmt.Println("[WARNING]: config.toml not found, using defaults and environment variables")
	}

	err := Validate()
	if errors.Is(err, ErrNoJWTSecret) {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return err
}

// Validate checks the loaded values
func Validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 || v.GetInt("host.port") > 65535 {
		return errors.New("invalid port provided")
	}

	if v.GetString("jwt.secret") == "" {
		return ErrNoJWTSecret
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.driver") == "postgres" && v.GetString("database.dsn") == "" {
		return errors.New("postgres requires database.dsn")
	}

	if v.GetBool("mail.enabled") {
		if v.GetString("mail.host") == "" {
			return errors.New("mail host can't be empty")
		}
		if v.GetString("mail.sender") == "" {
			return errors.New("mail sender can't be empty")
		}
		if v.GetInt("mail.port") <= 0 {
			return errors.New("invalid mail port provided")
		}
	}

	switch v.GetString("avatar.storage") {
	case "s3":
		{
			if v.GetString("aws.access_key") == "" {
				return errors.New("aws access key can't be empty")
			}
			if v.GetString("aws.secret_access_key") == "" {
				return errors.New("aws secret access key can't be empty")
			}
			if v.GetString("aws.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
		}
	case "db":
	default:
		return fmt.Errorf("invalid avatar storage provided, expected one of %v", validAvatarStorages)
	}

	if v.GetInt64("avatar.max_size") <= 0 {
		return errors.New("avatar.max_size must be bigger than 0")
	}

	if v.GetInt("avatar.dimension") <= 0 {
		return errors.New("avatar.dimension must be bigger than 0")
	}

	if v.GetInt("avatar.cache_ttl") < 0 {
		return errors.New("avatar.cache_ttl can't be negative")
	}

	if v.GetInt("security.rate_limit") < 0 {
		return errors.New("security.rate_limit can't be negative")
	}

	if _, err := cron.ParseStandard(v.GetString("cleanup.schedule")); err != nil {
		return fmt.Errorf("invalid cleanup.schedule, %w", err)
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Signup and login won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	return nil
}
