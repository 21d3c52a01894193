package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "1.0.0"

// Setting keys. Each is also a flag name and, upper-cased with dashes as
// underscores, the environment variable the server reads.
const (
	keyDBType            = "db-type"
	keyDBHost            = "db-host"
	keyDBPort            = "db-port"
	keyDBDatabase        = "db-database"
	keyDBUser            = "db-user"
	keyDBPassword        = "db-password"
	keyDBConnectionLimit = "db-connection-limit"
	keyCloudinaryURL     = "cloudinary-url"
	keyCloudinaryName    = "cloudinary-cloud-name"
	keyCloudinaryKey     = "cloudinary-api-key"
	keyCloudinarySecret  = "cloudinary-api-secret"
	keyUploadFolder      = "upload-folder"
	keyStagedUploadTTL   = "staged-upload-ttl"

	defaultDBType = "sqlite"
)

// loadSettings resolves the datastore settings. Precedence is flag, then
// environment, then config file, then flag default.
func loadSettings(v *viper.Viper, flags *pflag.FlagSet, configFile, envFile string) (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyDBConnectionLimit, 2)
	v.SetDefault(keyStagedUploadTTL, 24*time.Hour)

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &config.Config{
		DBType:              v.GetString(keyDBType),
		DBHost:              v.GetString(keyDBHost),
		DBPort:              v.GetString(keyDBPort),
		DBDatabase:          v.GetString(keyDBDatabase),
		DBUser:              v.GetString(keyDBUser),
		DBPassword:          v.GetString(keyDBPassword),
		DBConnectionLimit:   v.GetInt(keyDBConnectionLimit),
		CloudinaryURL:       v.GetString(keyCloudinaryURL),
		CloudinaryCloudName: v.GetString(keyCloudinaryName),
		CloudinaryAPIKey:    v.GetString(keyCloudinaryKey),
		CloudinaryAPISecret: v.GetString(keyCloudinarySecret),
		UploadFolder:        v.GetString(keyUploadFolder),
		StagedUploadTTL:     v.GetDuration(keyStagedUploadTTL),
	}
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("%s is required (flag --%s or env %s)", keyDBDatabase, keyDBDatabase, envName(keyDBDatabase))
	}
	return cfg, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
