package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// mainConfig is built once at startup and never mutated afterwards.
type mainConfig struct {
	EnvVars
	Cors
	Tokens
	Security
	Storage
}

// LookupFunc reads a single setting. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads an optional .env file into the process environment and then
// builds the configuration snapshot from it. Missing required settings are
// returned as an error; callers treat that as fatal.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("[config Load] reading %s: %w", f, err)
		}
	}
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds the configuration snapshot from lookup.
func LoadFrom(lookup LookupFunc) (Config, error) {
	r := reader{lookup: lookup}

	c := mainConfig{
		EnvVars:  loadEnvVars(&r),
		Cors:     loadCors(&r),
		Tokens:   loadTokens(&r),
		Security: loadSecurity(&r),
		Storage:  loadStorage(&r),
	}

	if err := r.err(); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c mainConfig) validate() error {
	if c.Tokens.accessSecret == c.Tokens.refreshSecret {
		return fmt.Errorf("%s and %s must differ", accessTokenSecretVar, refreshTokenSecretVar)
	}
	if c.Tokens.accessExpiry <= 0 || c.Tokens.refreshExpiry <= 0 {
		return errors.New("token expiries must be positive")
	}
	if c.Security.bcryptCost < MinBcryptCost {
		return fmt.Errorf("%s must be at least %d", bcryptCostVar, MinBcryptCost)
	}
	switch c.Storage.storeDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Storage.databaseURL == "" {
			return fmt.Errorf("%s is required when %s=%s", databaseURLVar, storeDriverVar, StoreDriverPostgres)
		}
	default:
		return fmt.Errorf("unknown %s %q", storeDriverVar, c.Storage.storeDriver)
	}
	switch c.Storage.mediaDriver {
	case MediaDriverMemory:
	case MediaDriverS3:
		if c.Storage.s3Bucket == "" {
			return fmt.Errorf("%s is required when %s=%s", s3BucketVar, mediaDriverVar, MediaDriverS3)
		}
	default:
		return fmt.Errorf("unknown %s %q", mediaDriverVar, c.Storage.mediaDriver)
	}
	return nil
}
