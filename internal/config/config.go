package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
// A single Config instance is built at process start and passed by reference
// into each component; nothing reads configuration ambiently after that.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	S3          S3Config          `mapstructure:"s3"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	AccessToken AccessTokenConfig `mapstructure:"access_token"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Reminder    ReminderConfig    `mapstructure:"reminder"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	// Enabled selects the object-storage intake path. When false, file
	// payloads are embedded in the submission document instead.
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines login-token specific configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AccessTokenConfig configures the QR access-token codec.
// Key is a single static symmetric key shared by all tokens; any holder of
// the deployed configuration can mint valid tokens. Kept as an explicit,
// reviewed trade-off of the QR flow rather than per-submission keys.
type AccessTokenConfig struct {
	Key        string        `mapstructure:"key"` // 32 bytes -> AES-256
	Expiration time.Duration `mapstructure:"expiration"`
}

// UploadConfig bounds the file intake pipeline.
type UploadConfig struct {
	// MaxObjectBytes applies when files go to object storage.
	MaxObjectBytes int64 `mapstructure:"max_object_bytes"`
	// MaxInlineBytes applies when files are embedded in the document record.
	MaxInlineBytes int64 `mapstructure:"max_inline_bytes"`
	// AllowedTypes is the MIME allow-list. A trailing "/*" matches a prefix.
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// NotifyConfig configures the outbound email delivery API.
type NotifyConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
	QueueSize   int    `mapstructure:"queue_size"`
}

// ReminderConfig configures the medication-reminder scheduler.
type ReminderConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: server.address -> SERVER_ADDRESS etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "health_portal")
	viper.SetDefault("s3.enabled", false)
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("access_token.expiration", "24h")
	viper.SetDefault("upload.max_object_bytes", 5*1024*1024)
	viper.SetDefault("upload.max_inline_bytes", 1*1024*1024)
	viper.SetDefault("upload.allowed_types", []string{"image/*", "application/pdf"})
	viper.SetDefault("notify.queue_size", 64)
	viper.SetDefault("reminder.check_interval", "1m")

	err = viper.ReadInConfig()
	// Missing config file is fine; env vars and defaults may be enough.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
