// Package config builds the process-wide configuration once at startup.
// Components receive the values they need from a Config value instead of
// reading the environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	BaseURL           string
	ReadHeaderTimeout time.Duration

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	TmpDir    string
	AvatarDir string

	CORSOrigins []string
}

// Load reads a .env file if present and then builds Config from the
// environment. A missing .env is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv maps environment variables onto Config, applying defaults.
func FromEnv() Config {
	port := getEnv("PORT", "3000")
	cfg := Config{
		Port:              port,
		BaseURL:           strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		ReadHeaderTimeout: getDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		JWTSecret:         os.Getenv("SECRET"),
		TokenTTL:          getDuration("TOKEN_TTL", time.Hour),
		BcryptCost:        getInt("BCRYPT_COST", 10),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnv("SMTP_PORT", "465"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		MailFrom:          os.Getenv("MAIL_FROM"),
		TmpDir:            getEnv("TMP_DIR", "./tmp"),
		AvatarDir:         getEnv("AVATAR_DIR", "./public/avatars"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}
	return cfg
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within 4..31, got %d", c.BcryptCost))
	}
	if c.TmpDir == "" || c.AvatarDir == "" {
		errs = append(errs, errors.New("TMP_DIR and AVATAR_DIR must not be empty"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
