/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the matchmaking-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisCachePrefix          string `mapstructure:"REDIS_CACHE_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins        string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MomoAPIBaseURL            string `mapstructure:"MOMO_API_BASE_URL"`
	MomoSubscriptionKey       string `mapstructure:"MOMO_SUBSCRIPTION_KEY"`
	MomoUserReferenceID       string `mapstructure:"MOMO_USER_REFERENCE_ID"`
	MomoAPIKey                string `mapstructure:"MOMO_API_KEY"`
	MomoTargetEnvironment     string `mapstructure:"MOMO_TARGET_ENVIRONMENT"`
	MomoCallbackURL           string `mapstructure:"MOMO_CALLBACK_URL"`
	MomoRequestTimeoutSeconds int    `mapstructure:"MOMO_REQUEST_TIMEOUT_SECONDS"`
	SubscriptionRenewalDays   int    `mapstructure:"SUBSCRIPTION_RENEWAL_DAYS"`
}

// AllowedOrigins returns the configured CORS origins as a slice. An empty
// configuration yields nil, which disables the CORS middleware entirely.
func (c Config) AllowedOrigins() []string {
	raw := strings.TrimSpace(c.CORSAllowedOrigins)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_CACHE_PREFIX", "matchmaking")
	viper.SetDefault("MOMO_TARGET_ENVIRONMENT", "sandbox")
	viper.SetDefault("MOMO_REQUEST_TIMEOUT_SECONDS", 15)
	viper.SetDefault("SUBSCRIPTION_RENEWAL_DAYS", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_CACHE_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("MOMO_API_BASE_URL")
	_ = viper.BindEnv("MOMO_SUBSCRIPTION_KEY")
	_ = viper.BindEnv("MOMO_USER_REFERENCE_ID")
	_ = viper.BindEnv("MOMO_API_KEY")
	_ = viper.BindEnv("MOMO_TARGET_ENVIRONMENT")
	_ = viper.BindEnv("MOMO_CALLBACK_URL")
	_ = viper.BindEnv("MOMO_REQUEST_TIMEOUT_SECONDS")
	_ = viper.BindEnv("SUBSCRIPTION_RENEWAL_DAYS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisCachePrefix = strings.TrimSpace(config.RedisCachePrefix)
	if config.RedisCachePrefix == "" {
		config.RedisCachePrefix = "matchmaking"
	}
	config.MomoTargetEnvironment = strings.TrimSpace(config.MomoTargetEnvironment)
	if config.MomoTargetEnvironment == "" {
		config.MomoTargetEnvironment = "sandbox"
	}

	if config.MomoRequestTimeoutSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"invalid momo request timeout; using default\" seconds=%d", config.MomoRequestTimeoutSeconds)
		config.MomoRequestTimeoutSeconds = 15
	}
	if config.SubscriptionRenewalDays <= 0 {
		log.Printf("level=warn component=config msg=\"invalid subscription renewal period; using default\" days=%d", config.SubscriptionRenewalDays)
		config.SubscriptionRenewalDays = 30
	}

	return
}
