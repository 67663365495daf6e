// Package config loads the process configuration once at startup. Nothing
// else in the codebase reads the environment; secrets travel inside this
// struct.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// KeyPair holds one token class's secrets: a 32-byte AES-256 encryption key
// and an HMAC signing key. The three classes never share a pair.
type KeyPair struct {
	Encrypt []byte
	Sign    []byte
}

// SMTP carries mail relay settings.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Keys groups the per-class secret pairs.
type Keys struct {
	Code    KeyPair
	Access  KeyPair
	Refresh KeyPair
}

// Config is the full process configuration.
type Config struct {
	Addr         string
	DatabaseURL  string
	DatabaseName string
	Keys         Keys
	BcryptCost   int
	TestPwd      string
	SMTP         SMTP
}

// Load reads .env if present, then the environment. Key material is
// validated here so a bad deployment fails at boot, not mid-flow.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:         envOr("ADDR_ENV", ":8080"),
		DatabaseURL:  os.Getenv("DB_URL_ENV"),
		DatabaseName: envOr("DB_NAME_ENV", "scorekeep"),
		TestPwd:      os.Getenv("TEST_PWD_ENV"),
		SMTP: SMTP{
			Host:     envOr("SMTP_HOST_ENV", "smtp.gmail.com"),
			Username: os.Getenv("EMAIL_ENV"),
			Password: os.Getenv("PASSWORD_ENV"),
			From:     os.Getenv("EMAIL_ENV"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DB_URL_ENV is required")
	}

	port, err := strconv.Atoi(envOr("SMTP_PORT_ENV", "587"))
	if err != nil {
		return nil, fmt.Errorf("config: SMTP_PORT_ENV: %w", err)
	}
	cfg.SMTP.Port = port

	cost, err := strconv.Atoi(envOr("BCRYPT_SALT_HASH", "12"))
	if err != nil {
		return nil, fmt.Errorf("config: BCRYPT_SALT_HASH: %w", err)
	}
	cfg.BcryptCost = cost

	for _, kp := range []struct {
		dst        *KeyPair
		cryptoName string
		signName   string
	}{
		{&cfg.Keys.Code, "CRYPTO_AUTH_ENV", "JWT_AUTH_ENV"},
		{&cfg.Keys.Access, "CRYPTO_ACCESS_TOKEN_ENV", "JWT_ACCESS_TOKEN_ENV"},
		{&cfg.Keys.Refresh, "CRYPTO_REFRESH_TOKEN_ENV", "JWT_REFRESH_TOKEN_ENV"},
	} {
		enc, err := decodeKey(kp.cryptoName)
		if err != nil {
			return nil, err
		}
		sign := os.Getenv(kp.signName)
		if sign == "" {
			return nil, fmt.Errorf("config: %s is required", kp.signName)
		}
		kp.dst.Encrypt = enc
		kp.dst.Sign = []byte(sign)
	}

	return cfg, nil
}

func decodeKey(name string) ([]byte, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return nil, fmt.Errorf("config: %s is required", name)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: %s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
