package config

import (
	"net/url"
	"time"

	"github.com/NagaaSaketh/KaviosPix-BE/internal/pkg/env"
)

type Config struct {
	HTTP     httpConfig
	DB       dbConfig
	Redis    redisConfig
	OAuth    oauthConfig
	Session  sessionConfig
	Uploads  uploadConfig
	Frontend *url.URL
}

type httpConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type dbConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DB             string
	MigrationsPath string
}

type redisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type oauthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	ExchangeTimeout    time.Duration
}

type sessionConfig struct {
	Secret     string
	Issuer     string
	TTL        time.Duration
	Production bool
}

type uploadConfig struct {
	Root     string
	MaxBytes int64
}

func FromEnv() Config {
	return Config{
		HTTP: httpConfig{
			ListenAddr:      env.String("HTTP_LISTEN_ADDR", ":8080"),
			ReadTimeout:     env.Duration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.Duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     env.Duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: env.Duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		DB: dbConfig{
			Host:           env.String("DB_HOST", "localhost"),
			Port:           env.String("DB_PORT", "5432"),
			User:           env.String("DB_USER", "kaviospix"),
			Password:       env.RequireString("DB_PASSWORD"),
			DB:             env.String("DB_NAME", "kaviospix"),
			MigrationsPath: env.String("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Redis: redisConfig{
			Host:     env.String("REDIS_HOST", "localhost"),
			Port:     env.String("REDIS_PORT", "6379"),
			Password: env.String("REDIS_PASSWORD", ""),
			DB:       int(env.Int64("REDIS_DB", 0)),
		},
		OAuth: oauthConfig{
			GoogleClientID:     env.RequireString("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: env.RequireString("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  env.RequireString("GOOGLE_REDIRECT_URL"),
			ExchangeTimeout:    env.Duration("OAUTH_EXCHANGE_TIMEOUT", 10*time.Second),
		},
		Session: sessionConfig{
			Secret:     env.RequireString("SESSION_SECRET"),
			Issuer:     env.String("SESSION_ISSUER", "kaviospix"),
			TTL:        env.Duration("SESSION_TTL", 7*24*time.Hour),
			Production: env.Bool("PRODUCTION", false),
		},
		Uploads: uploadConfig{
			Root:     env.String("UPLOAD_ROOT", "uploads"),
			MaxBytes: env.Int64("UPLOAD_MAX_BYTES", 20<<20),
		},
		Frontend: env.Url("FRONTEND_URL", mustParse("http://localhost:3000")),
	}
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
