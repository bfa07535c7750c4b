package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/flagx"
	"github.com/dmitrijs2005/cartkeeper/internal/timex"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvHTTPAddr           = "HTTP_ADDR"
	EnvGRPCAddr           = "GRPC_ADDR"
	EnvDatabaseDSN        = "DATABASE_DSN"
	EnvCORSOrigin         = "CORS_ORIGIN"
	EnvAccessTokenSecret  = "ACCESS_TOKEN_SECRET"
	EnvAccessTokenExpiry  = "ACCESS_TOKEN_EXPIRY"
	EnvRefreshTokenSecret = "REFRESH_TOKEN_SECRET"
	EnvRefreshTokenExpiry = "REFRESH_TOKEN_EXPIRY"
	EnvMode               = "APP_ENV"
	EnvS3AccessKey        = "S3_ACCESS_KEY"
	EnvS3SecretKey        = "S3_SECRET_KEY"
	EnvS3Bucket           = "S3_BUCKET"
	EnvS3Region           = "S3_REGION"
	EnvS3Endpoint         = "S3_ENDPOINT"
)

// defaultEnvFile is loaded when present and -env is not given.
const defaultEnvFile = ".env"

// loadEnvFile seeds the process environment from a dotenv file. Variables
// that are already set win over the file. An explicit -env path that cannot
// be read panics; a missing default .env is ignored.
func loadEnvFile(args []string) {
	path := flagx.EnvFileFlag(args)
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); err != nil {
			return
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		panic(fmt.Errorf("load env file %s: %w", path, err))
	}
}

// parseEnv overlays values from environment variables. Expiry variables use
// timex.ParseDuration, so "15m" and "10d" both work; an invalid value panics.
func parseEnv(config *Config, args []string) {
	loadEnvFile(args)

	lookupString(&config.EndpointAddrHTTP, EnvHTTPAddr)
	lookupString(&config.EndpointAddrGRPC, EnvGRPCAddr)
	lookupString(&config.DatabaseDSN, EnvDatabaseDSN)
	lookupString(&config.CORSOrigin, EnvCORSOrigin)
	lookupString(&config.AccessTokenSecret, EnvAccessTokenSecret)
	lookupString(&config.RefreshTokenSecret, EnvRefreshTokenSecret)
	lookupString(&config.Mode, EnvMode)
	lookupString(&config.S3AccessKey, EnvS3AccessKey)
	lookupString(&config.S3SecretKey, EnvS3SecretKey)
	lookupString(&config.S3Bucket, EnvS3Bucket)
	lookupString(&config.S3Region, EnvS3Region)
	lookupString(&config.S3BaseEndpoint, EnvS3Endpoint)

	lookupDuration(&config.AccessTokenValidityDuration, EnvAccessTokenExpiry)
	lookupDuration(&config.RefreshTokenValidityDuration, EnvRefreshTokenExpiry)
}

func lookupString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func lookupDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := timex.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
